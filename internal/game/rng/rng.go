// Package rng provides the injectable randomness abstraction for the
// Duelgrounds combat engine. Every probabilistic step in action resolution
// draws from a Source, so a match replayed against a seeded Source is
// fully reproducible.
package rng

// Source is the randomness provider for the combat engine.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int

	// Float64 returns a uniformly distributed float64 in [0, 1).
	Float64() float64
}
