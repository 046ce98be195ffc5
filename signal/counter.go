// Package signal provides probes that observe a signal and report when it
// departs from a given value.
package signal

import (
	"context"
	"sync/atomic"
)

// Counter is a probe whose value increases by one on every call until it
// reaches bound, after which it stops changing.
//
// The argument passed to WaitUntilNot is ignored: the counter tracks its own
// number of calls.
type Counter struct {
	start int
	bound int
	calls atomic.Int64
}

// NewCounter creates a Counter starting at start and stalling at bound.
func NewCounter(start, bound int) *Counter {
	return &Counter{
		start: start,
		bound: bound,
	}
}

// WaitUntilNot returns the next value of the counter, or blocks until ctx is
// done once the counter is exhausted.
func (c *Counter) WaitUntilNot(ctx context.Context, _ int) (int, error) {
	n := int(c.calls.Add(1))
	if c.start+n <= c.bound {
		return c.start + n, nil
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

// Calls returns the number of times WaitUntilNot was called.
func (c *Counter) Calls() int {
	return int(c.calls.Load())
}
