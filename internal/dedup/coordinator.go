// Package dedup collapses concurrent fetches for the same resource key into
// a single underlying call.
package dedup

import (
	"context"
	"sync"
)

// Fetch produces the value for a key. The coordinator runs exactly one Fetch
// per key at a time; concurrent callers share its outcome.
type Fetch func(ctx context.Context) (any, error)

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Coordinator tracks in-flight fetches per key. The in-flight marker is
// removed before waiters are released, so a call issued immediately after
// completion starts a fresh fetch instead of reusing a finished one.
type Coordinator struct {
	mu      sync.Mutex
	flights map[string]*flight
}

// New creates an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{flights: make(map[string]*flight)}
}

// Do runs fn for key unless a fetch for key is already in flight, in which
// case the caller waits for that flight's outcome. The bool result reports
// whether this caller joined an existing flight.
func (c *Coordinator) Do(ctx context.Context, key string, fn Fetch) (any, error, bool) {
	c.mu.Lock()
	if f, ok := c.flights[key]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.val, f.err, true
		case <-ctx.Done():
			return nil, ctx.Err(), true
		}
	}

	f := &flight{done: make(chan struct{})}
	c.flights[key] = f
	c.mu.Unlock()

	f.val, f.err = fn(ctx)

	// Drop the marker before releasing waiters.
	c.mu.Lock()
	delete(c.flights, key)
	c.mu.Unlock()
	close(f.done)

	return f.val, f.err, false
}

// ForceDo is the cache-bypassing path. Forced fetches never join a regular
// flight for the same key, but concurrent forced fetches dedupe against
// each other.
func (c *Coordinator) ForceDo(ctx context.Context, key string, fn Fetch) (any, error, bool) {
	return c.Do(ctx, "force!"+key, fn)
}

// InFlight reports whether a non-forced fetch for key is currently running.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.flights[key]
	return ok
}
