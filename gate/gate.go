// Package gate bounds the number of simultaneous network operations.
package gate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting admission limiter. It has no priority or fairness
// guarantee beyond the order in which Acquire calls arrive.
type Gate struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted

	inFlight atomic.Int64
	peak     atomic.Int64
}

// New returns a gate admitting at most capacity holders. Capacities below one
// are raised to one.
func New(name string, capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{
		name:     name,
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func must be called on every exit path; calling it more than once is a no-op.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}

	current := g.inFlight.Add(1)
	for {
		peak := g.peak.Load()
		if current <= peak || g.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		})
	}, nil
}

// Name returns the label given at construction.
func (g *Gate) Name() string {
	return g.name
}

// Capacity returns the maximum number of concurrent holders.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// InFlight returns the number of current holders.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Peak returns the highest number of concurrent holders observed.
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}
