// Package dedupe defines the interface for idempotency tracking.
//
// The streak engine uses a Guard keyed by "user@day" to bound reminder
// dispatch to at most once per user per local day, even when the sweep
// runs more than once in the same day.
package dedupe

import (
	"context"
	"sync"
)

// Guard records seen keys to ensure at-most-once side effects.
type Guard interface {
	// SeenAndRecord atomically checks whether key was seen and records
	// it if not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing its side effect to be retried.
	// Used when a dispatch recorded as seen subsequently failed.
	Unrecord(ctx context.Context, key string)

	// Size returns the number of recorded keys.
	Size() int
}

// inMemoryGuard implements Guard with a map plus a FIFO ring of keys.
// When the configured bound is reached the oldest key is evicted; keys
// are day-scoped, so anything old enough to be evicted is already
// harmless.
//
// The map stores each key's current ring slot. An Unrecord, or a
// re-record after one, leaves a stale slot in the ring; eviction must
// only drop the map entry when the slot it is rotating out is still the
// key's current one, otherwise a retried key could be forgotten by its
// own abandoned slot.
type inMemoryGuard struct {
	mu      sync.Mutex
	seen    map[string]int
	ring    []string
	head    int
	count   int
	maxSize int
}

const defaultGuardSize = 100_000

// NewInMemoryGuard creates an in-memory guard with configuration options.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{maxSize: defaultGuardSize}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]int, g.maxSize)
	g.ring = make([]string, g.maxSize)
	return g
}

func (g *inMemoryGuard) SeenAndRecord(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[key]; ok {
		return true
	}

	if g.count == g.maxSize {
		g.evictOldest()
	}
	slot := (g.head + g.count) % g.maxSize
	g.ring[slot] = key
	g.count++
	g.seen[key] = slot
	return false
}

// evictOldest rotates one slot out of the ring. A stale slot, one whose
// key was unrecorded or re-recorded elsewhere since, frees ring space
// without touching the map.
func (g *inMemoryGuard) evictOldest() {
	oldest := g.ring[g.head]
	if slot, ok := g.seen[oldest]; ok && slot == g.head {
		delete(g.seen, oldest)
	}
	g.head = (g.head + 1) % g.maxSize
	g.count--
}

func (g *inMemoryGuard) Unrecord(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// The ring slot keeps the stale key until it rotates out; only the
	// map decides visibility.
	delete(g.seen, key)
}

func (g *inMemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
