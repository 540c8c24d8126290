// Package permit provides the counting permit pool that bounds in-flight
// render sessions and model queries.
//
// One Pool is shared by the capture phase and the extraction phase of every
// URL. It bounds the sum of both, not each independently: with size N at most
// N browser-or-model operations run at once. Splitting it into two pools
// changes throughput characteristics and should not be done casually.
package permit

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool is a weighted semaphore that also tracks how many permits are held.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	active atomic.Int32
	peak   atomic.Int32
}

// NewPool creates a pool of size permits. Sizes below 1 are raised to 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire blocks until a permit is available or ctx is done.
// The returned func releases the permit and must be called exactly once.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			p.active.Add(-1)
			p.sem.Release(1)
		}
	}, nil
}

// Size returns the configured number of permits.
func (p *Pool) Size() int { return p.size }

// Active returns the number of permits currently held.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Peak returns the highest number of permits held at once.
func (p *Pool) Peak() int { return int(p.peak.Load()) }
