package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, vec.WithLabelValues(labels...).(prometheus.Metric).Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordCommitAttemptIncrementsByOutcome(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())
	c.RecordCommitAttempt("orders", true)
	c.RecordCommitAttempt("orders", false)
	c.RecordCommitAttempt("orders", false)

	require.Equal(t, float64(1), counterValue(t, c.commitTotal, "orders", "success"))
	require.Equal(t, float64(2), counterValue(t, c.commitTotal, "orders", "failure"))
}

func TestRecordCommitConflictAndRetry(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())
	c.RecordCommitConflict("orders")
	c.RecordCommitRetry("orders", 1)
	c.RecordCommitRetry("orders", 2)

	require.Equal(t, float64(1), counterValue(t, c.commitConflicts, "orders"))
	require.Equal(t, float64(2), counterValue(t, c.commitRetries, "orders"))
}

func TestRecordExpirationAccumulates(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())
	c.RecordExpiration("orders", 3, 10, 2)
	c.RecordExpiration("orders", 1, 4, 1)

	require.Equal(t, float64(4), counterValue(t, c.expiredSnapshots, "orders"))
	require.Equal(t, float64(14), counterValue(t, c.deletedDataFiles, "orders"))
	require.Equal(t, float64(3), counterValue(t, c.deletedManifests, "orders"))
}

func TestRecordCommitDurationObserves(t *testing.T) {
	c := NewCollectorWithRegistry(prometheus.NewRegistry())
	c.RecordCommitDuration("orders", 250*time.Millisecond)

	m := &dto.Metric{}
	require.NoError(t, c.commitDuration.WithLabelValues("orders").(prometheus.Metric).Write(m))
	require.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestNoopRecorderDoesNothing(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.RecordCommitAttempt("orders", true)
	r.RecordCommitConflict("orders")
	r.RecordCommitRetry("orders", 1)
	r.RecordCommitDuration("orders", time.Second)
	r.RecordExpiration("orders", 1, 1, 1)
}
