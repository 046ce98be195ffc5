// Package demo provides a command debouncing a counter that settles on a bound.
package demo

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darkness4/debounce-go/debounce"
	sig "github.com/Darkness4/debounce-go/signal"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var (
	start      int
	bound      int
	stableWait time.Duration
)

// Command is the command running the counter scenario.
var Command = &cli.Command{
	Name:  "demo",
	Usage: "Debounce a counter that increases until it reaches a bound.",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:        "start",
			Value:       0,
			Usage:       "Baseline of the counter.",
			EnvVars:     []string{"DEMO_START"},
			Destination: &start,
		},
		&cli.IntFlag{
			Name:        "bound",
			Value:       11,
			Usage:       "Value at which the counter stops increasing.",
			EnvVars:     []string{"DEMO_BOUND"},
			Destination: &bound,
		},
		&cli.DurationFlag{
			Name:        "stable-wait",
			Value:       time.Second,
			Usage:       "Quiet period before a value is considered stable.",
			EnvVars:     []string{"DEMO_STABLE_WAIT"},
			Destination: &stableWait,
		},
	},
	Action: func(cCtx *cli.Context) error {
		ctx, cancel := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if bound <= start {
			return fmt.Errorf("bound %d must be greater than start %d", bound, start)
		}

		value, err := Run(ctx, start, bound, stableWait)
		if err != nil {
			return err
		}
		if value != bound {
			return fmt.Errorf("counter settled on %d, expected %d", value, bound)
		}
		log.Info().Int("value", value).Msg("counter is stable")
		return nil
	},
}

// Run debounces a counter starting at start and blocking at bound.
func Run(
	ctx context.Context,
	start int,
	bound int,
	stableWait time.Duration,
) (int, error) {
	counter := sig.NewCounter(start, bound)
	begin := time.Now()
	value, err := debounce.Debounce(
		ctx,
		counter,
		start,
		debounce.Sleep(stableWait),
		debounce.WithObserver[int](debounce.ObserverFuncs[int]{
			OnDeparted: func(candidate int) {
				log.Debug().Int("candidate", candidate).Msg("counter moved")
			},
			OnNoise: func(candidate int, discarded int) {
				log.Debug().
					Int("candidate", candidate).
					Int("discarded", discarded).
					Msg("counter moved before the stability wait, restarting")
			},
		}),
	)
	if err != nil {
		return 0, err
	}
	log.Info().
		Int("value", value).
		Int("calls", counter.Calls()).
		Dur("elapsed", time.Since(begin)).
		Msg("debounced")
	return value, nil
}
