package signal

import (
	"context"
	"sync"
)

// Feed is a probe backed by pushed values.
//
// Producers call Publish whenever the signal is observed. Consumers block in
// WaitUntilNot until the latest published value differs from theirs.
type Feed[T comparable] struct {
	mu        sync.Mutex
	value     T
	changed   chan struct{}
	published chan struct{}
}

// NewFeed creates a Feed holding initial.
func NewFeed[T comparable](initial T) *Feed[T] {
	return &Feed[T]{
		value:     initial,
		changed:   make(chan struct{}),
		published: make(chan struct{}),
	}
}

// Publish sets the latest value of the signal and wakes up every waiter if it
// changed.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.published:
	default:
		close(f.published)
	}
	if v == f.value {
		return
	}
	f.value = v
	close(f.changed)
	f.changed = make(chan struct{})
}

// Value returns the latest published value.
func (f *Feed[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// WaitPublished blocks until Publish has been called at least once and returns
// the latest value.
func (f *Feed[T]) WaitPublished(ctx context.Context) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-f.published:
		return f.Value(), nil
	}
}

// WaitUntilNot returns the latest value as soon as it differs from current.
func (f *Feed[T]) WaitUntilNot(ctx context.Context, current T) (T, error) {
	for {
		f.mu.Lock()
		v, changed := f.value, f.changed
		f.mu.Unlock()

		if v != current {
			return v, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-changed:
		}
	}
}

// Run publishes every value received from values until the channel is closed
// or ctx is done.
func (f *Feed[T]) Run(ctx context.Context, values <-chan T) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-values:
			if !ok {
				return nil
			}
			f.Publish(v)
		}
	}
}
