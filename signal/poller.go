package signal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SampleFunc reads the current value of a signal.
type SampleFunc[T comparable] func(ctx context.Context) (T, error)

// Poller is a probe that samples a signal at a fixed interval.
type Poller[T comparable] struct {
	sample   SampleFunc[T]
	interval time.Duration
	log      zerolog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*pollerOptions)

type pollerOptions struct {
	logger *zerolog.Logger
}

// WithLogger sets the logger used to report sampling errors.
func WithLogger(logger zerolog.Logger) PollerOption {
	return func(o *pollerOptions) {
		o.logger = &logger
	}
}

// NewPoller creates a Poller calling sample every interval.
func NewPoller[T comparable](
	sample SampleFunc[T],
	interval time.Duration,
	opts ...PollerOption,
) *Poller[T] {
	if interval <= 0 {
		log.Panic().Dur("interval", interval).Msg("interval is 0 or negative")
	}
	o := &pollerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}
	return &Poller[T]{
		sample:   sample,
		interval: interval,
		log:      logger,
	}
}

// WaitUntilNot samples the signal immediately, then every interval, until the
// sample differs from current.
//
// Sampling errors are logged and the poll continues.
func (p *Poller[T]) WaitUntilNot(ctx context.Context, current T) (T, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		v, err := p.sample(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					var zero T
					return zero, ctx.Err()
				}
			}
			p.log.Warn().Err(err).Msg("failed to sample signal")
		} else if v != current {
			return v, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
