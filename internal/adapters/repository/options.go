// Package repository defines the ranked store contract and errors.
package repository

import "math/rand/v2"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithSeed makes treap priorities deterministic, which keeps tree shapes
// reproducible in tests and benchmarks. Ranking order never depends on
// priorities, only on the compound sort key.
func WithSeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.rng = rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // not used for crypto
	}
}
