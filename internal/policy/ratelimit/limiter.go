// Package ratelimit bounds the number of concurrently in-flight fetches with a
// weighted semaphore. It is the only throttle in the pipeline: request rate
// follows per-request latency, not wall-clock pacing.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/linkprobe/internal/metrics"
)

// DefaultMaxInFlight is used when Config.MaxInFlight is not positive.
const DefaultMaxInFlight = 5

// Config holds limiter configuration.
type Config struct {
	MaxInFlight int
}

// Limiter hands out fetch permits.
type Limiter struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	capacity := cfg.MaxInFlight
	if capacity <= 0 {
		capacity = DefaultMaxInFlight
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(capacity))}
}

// Acquire blocks until a permit is free or ctx ends. The returned release
// func is safe to call more than once; only the first call frees the permit.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return func() {}, fmt.Errorf("acquire permit: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePermitWait(waited)
	}
	l.inFlight.Add(1)
	metrics.IncInFlight()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.inFlight.Add(-1)
			metrics.DecInFlight()
			l.sem.Release(1)
		})
	}, nil
}

// InFlight reports how many permits are currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}
