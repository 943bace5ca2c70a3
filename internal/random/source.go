package random

import (
	"math/rand/v2"
	"sync"
)

// Source returns uniformly distributed ints in [0, n).
type Source interface {
	IntN(n int) int
}

// Locked is a seeded Source safe for concurrent use.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a deterministic Source for seed.
func New(seed int64) *Locked {
	s := uint64(seed)
	return &Locked{r: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// NewFromEntropy seeds a Source from crypto/rand.
func NewFromEntropy() (*Locked, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// IntN panics if n <= 0, like math/rand/v2.
func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Sequence replays fixed values; each value is reduced modulo n. Tests use it
// to script exact role and chaos outcomes.
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequence returns a Source cycling through values.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	if v < 0 {
		v = -v
	}
	return v % n
}
