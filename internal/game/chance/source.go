// Package chance supplies the randomness used by action resolution:
// probability checks, uniform picks, and ranged rolls.
package chance

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source produces uniformly distributed integers.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics if n <= 0 or crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("chance: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("chance: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a reproducible Source for replays and tests.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source for the given seed.
//
// Postcondition: Two sources built from the same seed yield identical sequences.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a deterministic int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("chance: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// sequenceSource replays fixed values, each reduced modulo n.
type sequenceSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequenceSource returns a Source that cycles through values.
// Each draw returns values[i] mod n, so 0 always selects the lowest outcome.
//
// Precondition: len(values) > 0 and every value >= 0.
func NewSequenceSource(values ...int) Source {
	if len(values) == 0 {
		panic("chance: NewSequenceSource requires at least one value")
	}
	return &sequenceSource{values: values}
}

func (s *sequenceSource) Intn(n int) int {
	if n <= 0 {
		panic("chance: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}
