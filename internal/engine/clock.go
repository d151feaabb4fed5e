package engine

import "sync/atomic"

// Clock hands out strictly increasing request ids.
//
// Evaluation results carry the id of the request that produced them, so a
// caller that gave up on one request never mistakes its late result for the
// answer to the next.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next id and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

