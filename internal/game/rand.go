package game

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the source of every random decision the engine makes: coin toss,
// opponent stance, trick and landing. *math/rand.Rand satisfies it, and
// tests substitute scripted sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe for concurrent handlers.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand. A zero seed uses the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}
