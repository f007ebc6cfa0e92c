package util

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Rand is the injectable randomness source driving simulated success draws,
// error selection and rate jitter. Tests supply a deterministic implementation
// to force both branches.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand creates a seedable, goroutine-safe Rand
func NewRand(seed int64) Rand {
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

// FixedRand always returns the same draw; tests use it to force the success
// or failure branch of a simulated gateway call.
type FixedRand struct {
	F float64
	N int
}

func (f FixedRand) Float64() float64 { return f.F }

func (f FixedRand) Intn(n int) int {
	if f.N < n {
		return f.N
	}
	return n - 1
}

// Sleeper is the configurable delay strategy for simulated gateway latency.
// The production implementation sleeps a random duration in [min, max];
// NopSleeper makes delays free in tests. Abandoning the context just stops
// the wait; no state depends on the delay completing.
type Sleeper interface {
	Sleep(ctx context.Context, min, max time.Duration)
}

// RealSleeper sleeps for a jittered duration
type RealSleeper struct {
	Rand Rand
}

func (s RealSleeper) Sleep(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d = min + time.Duration(s.Rand.Intn(int(max-min)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// NopSleeper skips simulated latency entirely
type NopSleeper struct{}

func (NopSleeper) Sleep(context.Context, time.Duration, time.Duration) {}
