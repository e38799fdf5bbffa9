package tamed

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent tasks within a scope. The teacher's hand-rolled
// channel semaphore is replaced here by golang.org/x/sync/semaphore, which
// the teacher's go.mod already declares (for errgroup) but never exercises
// for limiting — this wires the unused half of that dependency.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

type weightedLimiter struct {
	sem *semaphore.Weighted
}

func newWeightedLimiter(n int64) Limiter {
	if n <= 0 {
		return nil
	}
	return &weightedLimiter{sem: semaphore.NewWeighted(n)}
}

func (l *weightedLimiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *weightedLimiter) Release() {
	l.sem.Release(1)
}
