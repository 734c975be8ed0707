// Package metrics exposes Prometheus counters and a histogram for the catalog's
// commit retry loop and snapshot-expiration sweeps.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the interface catalog/retention code depends on, so tests can
// swap in a no-op implementation without touching the default registry.
type Recorder interface {
	RecordCommitAttempt(table string, success bool)
	RecordCommitConflict(table string)
	RecordCommitRetry(table string, attempt int)
	RecordCommitDuration(table string, d time.Duration)
	RecordExpiration(table string, expiredSnapshots, deletedDataFiles, deletedManifests int)
}

// Collector is the default Recorder, backed by promauto-registered metrics.
type Collector struct {
	registry prometheus.Registerer

	commitTotal      *prometheus.CounterVec
	commitConflicts  *prometheus.CounterVec
	commitRetries    *prometheus.CounterVec
	commitDuration   *prometheus.HistogramVec
	expiredSnapshots *prometheus.CounterVec
	deletedDataFiles *prometheus.CounterVec
	deletedManifests *prometheus.CounterVec
}

// NewCollector registers the catalog's metrics on the default registry and
// returns the Collector.
func NewCollector() *Collector {
	return newCollector(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry registers the catalog's metrics on a caller-
// supplied registry, so tests can run multiple Collectors without
// colliding on the global default registry.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	return newCollector(registry)
}

func newCollector(registry prometheus.Registerer) *Collector {
	c := &Collector{registry: registry}
	f := promauto.With(registry)

	c.commitTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_commit_attempts_total",
		Help: "Total number of commitTable attempts, labeled by outcome.",
	}, []string{"table", "outcome"})

	c.commitConflicts = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_commit_conflicts_total",
		Help: "Total number of commitTable requirement-check failures.",
	}, []string{"table"})

	c.commitRetries = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_commit_retries_total",
		Help: "Total number of commitTable retry attempts after a failed atomic swap.",
	}, []string{"table"})

	c.commitDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "icemeta_commit_duration_seconds",
		Help:    "commitTable end-to-end duration, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})

	c.expiredSnapshots = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_expired_snapshots_total",
		Help: "Total number of snapshots expired by a retention sweep.",
	}, []string{"table"})

	c.deletedDataFiles = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_expiration_deleted_data_files_total",
		Help: "Total number of data files reported unreferenced by expiration.",
	}, []string{"table"})

	c.deletedManifests = f.NewCounterVec(prometheus.CounterOpts{
		Name: "icemeta_expiration_deleted_manifests_total",
		Help: "Total number of manifest files reported unreferenced by expiration.",
	}, []string{"table"})

	return c
}

func (c *Collector) RecordCommitAttempt(table string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.commitTotal.WithLabelValues(table, outcome).Inc()
}

func (c *Collector) RecordCommitConflict(table string) {
	c.commitConflicts.WithLabelValues(table).Inc()
}

func (c *Collector) RecordCommitRetry(table string, attempt int) {
	c.commitRetries.WithLabelValues(table).Inc()
}

func (c *Collector) RecordCommitDuration(table string, d time.Duration) {
	c.commitDuration.WithLabelValues(table).Observe(d.Seconds())
}

func (c *Collector) RecordExpiration(table string, expiredSnapshots, deletedDataFiles, deletedManifests int) {
	c.expiredSnapshots.WithLabelValues(table).Add(float64(expiredSnapshots))
	c.deletedDataFiles.WithLabelValues(table).Add(float64(deletedDataFiles))
	c.deletedManifests.WithLabelValues(table).Add(float64(deletedManifests))
}

// NoopRecorder discards every recording; useful for tests and for running
// without a metrics server.
type NoopRecorder struct{}

func (NoopRecorder) RecordCommitAttempt(string, bool)           {}
func (NoopRecorder) RecordCommitConflict(string)                {}
func (NoopRecorder) RecordCommitRetry(string, int)              {}
func (NoopRecorder) RecordCommitDuration(string, time.Duration) {}
func (NoopRecorder) RecordExpiration(string, int, int, int)     {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = NoopRecorder{}
)
