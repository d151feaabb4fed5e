// Package rendezvous provides a single-slot hand-off between one producer
// goroutine and one waiting consumer.
//
// The contract is two-phase:
//
//  1. The consumer arms the cell with SetWaiting before it issues the request
//     that will eventually produce a value.
//  2. The producer stores the value and fires with StopWaiting (or Publish,
//     which does both under one lock).
//
// Wait returns the value only after the fire is observed, so the read of the
// slot happens-after the producer's write.
//
// PRECONDITION: calling Wait without a prior SetWaiting returns whatever the
// slot currently holds, immediately. The cell cannot detect this misuse.
package rendezvous

import (
	"context"
	"sync"
)

// Cell holds one value of type T plus a ready flag.
//
// A new cell starts ready, holding its initial value.
// Ready is represented by a closed channel; arming swaps in a fresh one.
type Cell[T any] struct {
	mu    sync.Mutex
	data  T
	ready chan struct{}
}

// New creates a ready cell holding initial.
func New[T any](initial T) *Cell[T] {
	ch := make(chan struct{})
	close(ch)
	return &Cell[T]{data: initial, ready: ch}
}

// SetWaiting clears the ready flag.
// A no-op if the cell is already armed.
func (c *Cell[T]) SetWaiting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arm()
}

// SetWaitingIf clears the ready flag only if the current value satisfies
// stale. It reports whether the cell was re-armed.
//
// Used by a consumer that woke up on a value it does not want: a fresh value
// published concurrently is never discarded because the check and the re-arm
// happen under the same lock.
func (c *Cell[T]) SetWaitingIf(stale func(T) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !stale(c.data) {
		return false
	}
	c.arm()
	return true
}

// Store writes the slot without signalling.
func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = v
}

// StopWaiting sets the ready flag and wakes the waiter.
func (c *Cell[T]) StopWaiting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fire()
}

// Publish stores v and fires in one step.
func (c *Cell[T]) Publish(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = v
	c.fire()
}

// Wait blocks until the cell is ready and returns a copy of the slot.
func (c *Cell[T]) Wait() T {
	v, _ := c.WaitContext(context.Background())
	return v
}

// WaitContext is Wait bounded by ctx.
// On cancellation it returns the zero value and ctx.Err(); the cell stays armed.
func (c *Cell[T]) WaitContext(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		ch := c.ready
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}

		c.mu.Lock()
		// Re-armed between the wake-up and the lock: wait for the next fire.
		if ch != c.ready {
			c.mu.Unlock()
			continue
		}
		v := c.data
		c.mu.Unlock()
		return v, nil
	}
}

// arm must be called with mu held.
func (c *Cell[T]) arm() {
	select {
	case <-c.ready:
		c.ready = make(chan struct{})
	default:
	}
}

// fire must be called with mu held.
func (c *Cell[T]) fire() {
	select {
	case <-c.ready:
	default:
		close(c.ready)
	}
}
