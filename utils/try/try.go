// Package try provides retry helpers for signal sources.
package try

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DoExponentialBackoff calls fn until it succeeds, tries is reached or ctx is
// done. The delay between tries is multiplied by multiplier, up to maxBackoff.
func DoExponentialBackoff(
	ctx context.Context,
	tries int,
	delay time.Duration,
	multiplier time.Duration,
	maxBackoff time.Duration,
	fn func(ctx context.Context) error,
) (err error) {
	if tries <= 0 {
		log.Panic().Int("tries", tries).Msg("tries is 0 or negative")
	}
	for try := 0; try < tries; try++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		log.Warn().
			Err(err).
			Int("try", try).
			Int("maxTries", tries).
			Dur("backoff", delay).
			Msg("try failed")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay = delay * multiplier
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
	log.Warn().Err(err).Msg("failed all tries")
	return err
}

// DoWithContextTimeoutWithResult calls fn with a per-try timeout until it
// succeeds, tries is reached or parent is done.
func DoWithContextTimeoutWithResult[T any](
	parent context.Context,
	tries int,
	delay time.Duration,
	timeout time.Duration,
	fn func(ctx context.Context, try int) (T, error),
) (result T, err error) {
	if tries <= 0 {
		log.Panic().Int("tries", tries).Msg("tries is 0 or negative")
	}

	for try := 0; try < tries; try++ {
		result, err = func() (T, error) {
			ctx, cancel := context.WithTimeout(parent, timeout)
			defer cancel()
			return fn(ctx, try)
		}()
		if err == nil {
			return result, nil
		}
		if parent.Err() != nil {
			return result, parent.Err()
		}
		log.Warn().Err(err).Int("try", try).Int("maxTries", tries).Msg("try failed")
		if try < tries-1 {
			if err := sleep(parent, delay); err != nil {
				return result, err
			}
		}
	}
	log.Warn().Err(err).Msg("failed all tries")
	return result, err
}
