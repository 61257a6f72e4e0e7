package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the randomness used by checkout decisions.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
}

// Locked is a seeded math/rand generator safe for concurrent use.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Locked source. A zero seed means "seed from the clock".
func New(seed int64) *Locked {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Locked{r: rand.New(rand.NewSource(seed))}
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Constant always answers the same draws. Useful to force an outcome.
type Constant struct {
	F float64
	I int
}

func (c Constant) Float64() float64 { return c.F }

func (c Constant) Intn(n int) int {
	if c.I >= n {
		return n - 1
	}
	if c.I < 0 {
		return 0
	}
	return c.I
}
