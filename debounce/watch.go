package debounce

import (
	"context"
	"time"
)

// Sleep returns a Waiter that waits for d.
func Sleep(d time.Duration) Waiter {
	return WaitFunc(func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Watch debounces every transition of a signal.
//
// Starting from initial, Watch calls Debounce with the last stable value as
// baseline and passes each transition to fn. Watch returns the first error
// from Debounce or fn.
//
// Unlike a single Debounce call, Watch waits for the cancelled probe leg of
// each call to return before calling fn, so probe calls never overlap across
// transitions.
func Watch[T comparable](
	ctx context.Context,
	probe Probe[T],
	initial T,
	stable Waiter,
	fn func(prev, next T) error,
	opts ...Option[T],
) error {
	opts = append(opts[:len(opts):len(opts)], func(o *options[T]) {
		o.joinProbe = true
	})
	current := initial
	for {
		next, err := Debounce(ctx, probe, current, stable, opts...)
		if err != nil {
			return err
		}
		if err := fn(current, next); err != nil {
			return err
		}
		current = next
	}
}
