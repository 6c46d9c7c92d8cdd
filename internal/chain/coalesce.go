package chain

import (
	"context"
	"sync"
	"time"
)

// coalescer collapses concurrent reads sharing the same key into a single
// in-flight call, so a burst of verifyPayment calls against the same UTXO
// costs the providers one round trip instead of many. A completed call's
// result is also kept for window — a near-simultaneous but
// non-overlapping repeat read (e.g. verify immediately followed by settle
// against the same UTXO) reuses it instead of hitting the provider again.
// Writes (Send) never go through this — only idempotent reads do.
type coalescer struct {
	mu       sync.Mutex
	inFlight map[string]*call
	window   time.Duration
}

type call struct {
	done     chan struct{}
	result   any
	err      error
	finished time.Time
}

func newCoalescer(window time.Duration) *coalescer {
	return &coalescer{inFlight: make(map[string]*call), window: window}
}

func (c *coalescer) do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	c.mu.Lock()
	if existing, ok := c.inFlight[key]; ok {
		if existing.err == nil && !existing.finished.IsZero() && time.Since(existing.finished) < c.window {
			c.mu.Unlock()
			return existing.result, existing.err
		}
		if existing.finished.IsZero() {
			c.mu.Unlock()
			select {
			case <-existing.done:
				return existing.result, existing.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inFlight[key] = cl
	c.mu.Unlock()

	cl.result, cl.err = fn()
	cl.finished = time.Now()
	close(cl.done)

	return cl.result, cl.err
}
