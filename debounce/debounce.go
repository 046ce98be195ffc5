// Package debounce turns a noisy asynchronous signal into a single stable value.
//
// A signal is described by a Probe, which blocks until the signal differs from
// a given value, and a Waiter, which blocks for the quiet period a value must
// hold to be considered stable. Debounce waits for the signal to leave the
// baseline, then races the Waiter against a second Probe call. If the Waiter
// wins, the candidate is returned. If the signal changes again first, the
// candidate is treated as noise and detection restarts from the baseline.
package debounce

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Probe detects departure of a signal from a given value.
type Probe[T comparable] interface {
	// WaitUntilNot blocks until the signal reports a value different from
	// current and returns that value.
	//
	// WaitUntilNot must return once ctx is done.
	WaitUntilNot(ctx context.Context, current T) (T, error)
}

// Waiter blocks for the quiet period after which a value is considered stable.
type Waiter interface {
	// Wait returns after the quiet period has elapsed. Wait must return once
	// ctx is done.
	Wait(ctx context.Context) error
}

// ProbeFunc adapts a function to a Probe.
type ProbeFunc[T comparable] func(ctx context.Context, current T) (T, error)

// WaitUntilNot calls f(ctx, current).
func (f ProbeFunc[T]) WaitUntilNot(ctx context.Context, current T) (T, error) {
	return f(ctx, current)
}

// WaitFunc adapts a function to a Waiter.
type WaitFunc func(ctx context.Context) error

// Wait calls f(ctx).
func (f WaitFunc) Wait(ctx context.Context) error {
	return f(ctx)
}

var (
	// ErrProbe wraps an error returned by the probe.
	ErrProbe = errors.New("probe failed")
	// ErrStabilityWait wraps an error returned by the stability waiter.
	ErrStabilityWait = errors.New("stability wait failed")
)

type outcome int

const (
	outcomeStable outcome = iota
	outcomeChanged
)

type legResult[T comparable] struct {
	outcome outcome
	value   T
	err     error
}

// Debounce blocks until the signal observed by probe leaves baseline and holds
// the new value for one full stable.Wait period, then returns that value.
//
// If the signal changes again before stable.Wait returns, the value is
// discarded and detection restarts from baseline. If the signal never leaves
// baseline, Debounce only returns when ctx is done.
//
// Debounce never returns baseline with a nil error. Errors from the callback
// whose leg wins the race are returned wrapped with ErrProbe or
// ErrStabilityWait. Errors from the cancelled leg are ignored.
func Debounce[T comparable](
	ctx context.Context,
	probe Probe[T],
	baseline T,
	stable Waiter,
	opts ...Option[T],
) (T, error) {
	o := applyOptions(opts)
	var zero T

	for {
		candidate, err := probe.WaitUntilNot(ctx, baseline)
		if err != nil {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			return zero, fmt.Errorf("%w: %w", ErrProbe, err)
		}
		o.observer.Departed(candidate)

		res := race(ctx, probe, candidate, stable, o.joinProbe)
		if res.err != nil {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			if res.outcome == outcomeStable {
				return zero, fmt.Errorf("%w: %w", ErrStabilityWait, res.err)
			}
			return zero, fmt.Errorf("%w: %w", ErrProbe, res.err)
		}

		switch res.outcome {
		case outcomeStable:
			o.observer.Stable(candidate)
			return candidate, nil
		case outcomeChanged:
			// Detection restarts from baseline, not from res.value.
			o.observer.Noise(candidate, res.value)
		}
	}
}

// race runs stable.Wait and probe.WaitUntilNot(candidate) concurrently and
// returns whichever finishes first. The loser is cancelled. When the probe
// wins, race also waits for the waiter to return so that no callback outlives
// the iteration. When the waiter wins, the probe leg is only joined if
// joinProbe is set.
func race[T comparable](
	ctx context.Context,
	probe Probe[T],
	candidate T,
	stable Waiter,
	joinProbe bool,
) legResult[T] {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered for both legs: the loser must never block on send.
	results := make(chan legResult[T], 2)

	var waiterDone sync.WaitGroup
	waiterDone.Add(1)
	go func() {
		defer waiterDone.Done()
		err := stable.Wait(raceCtx)
		results <- legResult[T]{outcome: outcomeStable, err: err}
	}()
	var probeDone sync.WaitGroup
	probeDone.Add(1)
	go func() {
		defer probeDone.Done()
		v, err := probe.WaitUntilNot(raceCtx, candidate)
		results <- legResult[T]{outcome: outcomeChanged, value: v, err: err}
	}()

	res := <-results
	cancel()
	switch {
	case res.outcome == outcomeChanged:
		waiterDone.Wait()
	case joinProbe:
		probeDone.Wait()
	}
	return res
}
