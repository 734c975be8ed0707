// Package snapshot builds snapshots and manages their ancestry, references,
// and retention-driven expiration (spec §4.E).
package snapshot

import (
	"sync"
	"time"
)

// Clock is the injectable time source snapshot construction depends on, so
// tests can produce deterministic timestamps and ids (spec §5).
type Clock interface {
	NowMs() int64
}

// SystemClock is the default Clock, backed by the wall clock.
type SystemClock struct{}

func (SystemClock) NowMs() int64 { return time.Now().UnixMilli() }

// IDGenerator produces monotonic, unique snapshot ids from a Clock: if two
// calls land in the same millisecond, the second is bumped by one so ids
// never collide and never go backwards.
type IDGenerator struct {
	clock Clock
	mu    sync.Mutex
	last  int64
}

// NewIDGenerator constructs an IDGenerator over the given clock.
func NewIDGenerator(clock Clock) *IDGenerator {
	return &IDGenerator{clock: clock}
}

// Next returns the next monotonic, unique id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.NowMs()
	if now <= g.last {
		now = g.last + 1
	}
	g.last = now
	return now
}
