package rng

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand"
	"sync"
)

// float64Denominator is 2^53, the largest power of two whose reciprocal
// retains full float64 precision when converting an integer draw to [0, 1).
const float64Denominator = 1 << 53

// cryptoSource implements Source using crypto/rand.
//
// Invariant: all values produced are uniformly distributed over the
// requested range.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand. This is the
// production source used for live matches.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
// Panics with "rng: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a cryptographically secure float64 in [0, 1).
func (c *cryptoSource) Float64() float64 {
	return float64(c.Intn(float64Denominator)) / float64Denominator
}

// seededSource implements Source using math/rand with a fixed seed.
// A mutex guards the underlying generator so the Source contract
// (safe for concurrent use) holds.
type seededSource struct {
	mu sync.Mutex
	r  *mathrand.Rand
}

// NewSeededSource returns a deterministic Source seeded with seed.
// Two sources with the same seed produce identical draw sequences,
// which makes recorded matches replayable.
func NewSeededSource(seed int64) Source {
	return &seededSource{r: mathrand.New(mathrand.NewSource(seed))}
}

// Intn returns a deterministic pseudo-random int in [0, n).
//
// Precondition: n > 0. Panics with "rng: Intn called with n <= 0" if n <= 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Float64 returns a deterministic pseudo-random float64 in [0, 1).
func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
