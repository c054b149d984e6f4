// Package dedupe defines the interface for idempotency tracking.
package dedupe

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize bounds the number of keys kept in memory. The oldest key
// is evicted once the bound is reached.
func WithMaxSize(maxSize int) Option {
	return func(g *inMemoryGuard) {
		if maxSize > 0 {
			g.maxSize = maxSize
		}
	}
}
