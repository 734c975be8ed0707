package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/marmotdata/icemeta/internal/metrics"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/marmotdata/icemeta/internal/storage"
)

// registryKey is the well-known blob holding the namespace registry: a
// catalog needs somewhere to persist namespace existence/properties that
// isn't derivable from listing table metadata blobs the way table
// existence is.
const registryKey = "_catalog/namespaces.json"

// Catalog implements the namespace/table contract of spec §4.L over a
// storage.Blob backend. All operations are safe for concurrent use from
// multiple goroutines against a single Catalog value; cross-process
// concurrency on the same backing store is handled by commitTable's
// optimistic retry loop (namespace mutations are last-writer-wins, which
// matches the spec's silence on namespace-level conflict semantics).
type Catalog struct {
	blob    storage.Blob
	clock   snapshot.Clock
	ids     *snapshot.IDGenerator
	metrics metrics.Recorder
	retry   RetryPolicy

	mu         sync.RWMutex
	namespaces map[string]*namespaceEntry
}

// Options configures Catalog construction.
type Options struct {
	Blob    storage.Blob
	Clock   snapshot.Clock // defaults to snapshot.SystemClock{}
	Metrics metrics.Recorder // defaults to metrics.NoopRecorder{}
	Retry   RetryPolicy      // defaults to DefaultRetryPolicy
}

// Open constructs a Catalog over opts.Blob, loading the namespace registry
// (if any) from the backend.
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	clock := opts.Clock
	if clock == nil {
		clock = snapshot.SystemClock{}
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	retry := opts.Retry
	if retry == (RetryPolicy{}) {
		retry = DefaultRetryPolicy
	}

	c := &Catalog{
		blob:       opts.Blob,
		clock:      clock,
		ids:        snapshot.NewIDGenerator(clock),
		metrics:    rec,
		retry:      retry,
		namespaces: make(map[string]*namespaceEntry),
	}

	raw, err := opts.Blob.Get(ctx, registryKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c, nil
		}
		return nil, fmt.Errorf("loading namespace registry: %w", err)
	}
	var stored map[string]*namespaceEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("parsing namespace registry: %w", err)
	}
	c.namespaces = stored
	return c, nil
}

// Blob returns the backing store, for callers (e.g. the retention sweep)
// that need to read manifest/data blobs directly.
func (c *Catalog) Blob() storage.Blob { return c.blob }

// Metrics returns the recorder the catalog was opened with.
func (c *Catalog) Metrics() metrics.Recorder { return c.metrics }

// saveNamespaces persists the namespace registry. Callers must hold c.mu.
func (c *Catalog) saveNamespaces(ctx context.Context) error {
	raw, err := json.Marshal(c.namespaces)
	if err != nil {
		return fmt.Errorf("marshaling namespace registry: %w", err)
	}
	if err := c.blob.Put(ctx, registryKey, raw); err != nil {
		return fmt.Errorf("writing namespace registry: %w", err)
	}
	return nil
}

