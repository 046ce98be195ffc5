// Package watch provides a command debouncing several signals described in a
// config file.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/Darkness4/debounce-go/debounce"
	"github.com/Darkness4/debounce-go/notify"
	"github.com/Darkness4/debounce-go/notify/notifier"
	"github.com/Darkness4/debounce-go/signal/httpcheck"
	"github.com/Darkness4/debounce-go/state"
	"github.com/Darkness4/debounce-go/telemetry/metrics"
	"github.com/Darkness4/debounce-go/utils"
	_ "github.com/grafana/pyroscope-go/godeltaprof/http/pprof"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "cmd/watch"
	// noiseBacklog is the number of pending noise notifications per signal.
	noiseBacklog = 16
)

var (
	configPath    string
	listenAddress string
)

// Command is the command for watching multiple signals.
var Command = &cli.Command{
	Name:  "watch",
	Usage: "Debounce multiple signals and report their stable transitions.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Required:    true,
			Usage:       `Config file path. (required)`,
			EnvVars:     []string{"CONFIG_PATH"},
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "http.listen-address",
			Aliases:     []string{"pprof.listen-address"},
			Value:       ":3000",
			Usage:       "Address of the state, metrics and pprof server.",
			EnvVars:     []string{"HTTP_LISTEN_ADDRESS"},
			Destination: &listenAddress,
		},
	},
	Action: func(cCtx *cli.Context) error {
		ctx, cancel := context.WithCancel(cCtx.Context)

		// Trap cleanup
		cleanChan := make(chan os.Signal, 1)
		signal.Notify(cleanChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-cleanChan
			cancel()
		}()

		configChan := make(chan *Config)
		go ObserveConfig(ctx, configPath, configChan)

		go func() {
			http.Handle("/", StateHandler(state.DefaultState))
			http.Handle("/metrics", promhttp.Handler())
			log.Info().Str("listenAddress", listenAddress).Msg("listening")
			if err := http.ListenAndServe(listenAddress, nil); err != nil {
				log.Fatal().Err(err).Msg("fail to serve http")
			}
			log.Fatal().Msg("http server stopped")
		}()

		return ConfigReloader(ctx, configChan, handleConfig)
	},
}

// StateHandler serves the state as indented JSON.
func StateHandler(s *state.State) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err = w.Write(b); err != nil {
			log.Err(err).Msg("failed to write state")
		}
	})
}

func newNotifier(config NotifierConfig, client *http.Client) notify.BaseNotifier {
	switch {
	case !config.Enabled:
		log.Info().Msg("no notifier configured")
		return notify.NewDummyNotifier()
	case config.Gotify.Endpoint != "":
		log.Info().Msg("using gotify")
		return notify.NewGoNotifier(client, config.Gotify.Endpoint, config.Gotify.Token)
	case len(config.URLs) > 0:
		n, err := notify.NewShoutrrrNotifier(config.URLs...)
		if err != nil {
			log.Error().Err(err).Msg("failed to create shoutrrr notifier, notifications disabled")
			return notify.NewDummyNotifier()
		}
		log.Info().Msg("using shoutrrr")
		return n
	}
	log.Warn().Msg("notifier enabled but there is no gotify endpoint nor URLs")
	return notify.NewDummyNotifier()
}

func handleConfig(ctx context.Context, config *Config) {
	client := httpcheck.NewClient()

	formated, err := notify.NewFormatedNotifier(
		newNotifier(config.Notifier, client),
		config.Notifier.NotificationFormats,
	)
	if err != nil {
		log.Error().Err(err).Msg("invalid notification formats, using defaults")
		formated, _ = notify.NewFormatedNotifier(
			newNotifier(config.Notifier, client),
			notify.NotificationFormats{},
		)
	}
	notifier.Notifier = formated
	if err := notifier.NotifyConfigReloaded(ctx); err != nil {
		log.Err(err).Msg("notify failed")
	}
	defer func() {
		if err := recover(); err != nil {
			fmt.Println(err)
			if err := notifier.NotifyPanicked(context.Background(), err); err != nil {
				log.Err(err).Msg("notify failed")
			}
			os.Exit(1)
		}
	}()

	signals, err := config.SignalParams()
	if err != nil {
		log.Error().Err(err).Msg("invalid config")
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, params := range signals {
		g.Go(func() error {
			handleSignal(ctx, client, name, params)
			return nil
		})
	}
	_ = g.Wait()
}

// handleSignal debounces a signal until ctx is done, restarting after
// failures.
func handleSignal(
	ctx context.Context,
	client *http.Client,
	name string,
	params *Params,
) {
	log := log.With().Str("signal", name).Logger()
	attrs := metric.WithAttributes(attribute.String("signal", name))
	for {
		err := watchSignal(ctx, client, name, params)
		if ctx.Err() != nil {
			log.Info().Msg("abort watching signal")
			state.DefaultState.SetSignalState(name, state.DebounceStateCanceled)
			if err := notifier.NotifyCanceled(context.Background(), name, params.Labels); err != nil {
				log.Err(err).Msg("notify failed")
			}
			return
		}
		log.Error().Err(err).Msg("failed to debounce")
		metrics.Debounce.Errors.Add(ctx, 1, attrs)
		state.DefaultState.SetSignalError(name, err)
		if err := notifier.NotifyError(context.Background(), name, params.Labels, err); err != nil {
			log.Err(err).Msg("notify failed")
		}

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// watchSignal debounces every transition of a signal. Each Debounce call is
// traced and timed.
func watchSignal(
	ctx context.Context,
	client *http.Client,
	name string,
	params *Params,
) error {
	src, err := newSource(client, params)
	if err != nil {
		return err
	}

	// The source and the debounce loop stop together. errs keeps the cause
	// rather than the cancellation it triggered.
	errs := make([]error, 2)
	g, ctx := errgroup.WithContext(ctx)
	if src.run != nil {
		g.Go(func() error {
			errs[0] = src.run(ctx)
			return errs[0]
		})
	}
	g.Go(func() error {
		errs[1] = debounceSignal(ctx, src, name, params)
		return errs[1]
	})
	_ = g.Wait()
	return utils.GetFirstValuableErrorOrFirst(errs)
}

func debounceSignal(
	ctx context.Context,
	src *source,
	name string,
	params *Params,
) error {
	log := log.With().Str("signal", name).Logger()
	baseline, err := resolveBaseline(ctx, src, params)
	if err != nil {
		return err
	}

	noise := startNoiseNotifier(ctx, name, params.Labels)
	defer noise.stop()

	tracer := otel.Tracer(tracerName)
	attrs := []attribute.KeyValue{attribute.String("signal", name)}
	var span trace.Span
	var record func()
	begin := func(baseline string) {
		state.DefaultState.StartRun(name, baseline, params.Labels)
		metrics.Debounce.Runs.Add(ctx, 1, metric.WithAttributes(attrs...))
		_, span = tracer.Start(
			ctx,
			"debounce",
			trace.WithAttributes(append(attrs, attribute.String("baseline", baseline))...),
		)
		record = metrics.TimeStartRecording(
			ctx,
			metrics.Debounce.StabilizationTime,
			time.Second,
			metric.WithAttributes(attrs...),
		)
	}
	begin(baseline)
	log.Info().Str("baseline", baseline).Msg("watching signal")

	err = debounce.Watch(
		ctx,
		src.probe,
		baseline,
		debounce.Sleep(params.StableWait),
		func(prev, next string) error {
			record()
			span.SetAttributes(attribute.String("value", next))
			span.End()

			log.Info().Str("previous", prev).Str("value", next).Msg("signal is stable")
			state.DefaultState.SetStable(name, next)
			metrics.Watcher.Transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
			if err := notifier.NotifyStable(ctx, name, params.Labels, prev, next); err != nil {
				log.Err(err).Msg("notify failed")
			}

			begin(next)
			return nil
		},
		debounce.WithObserver[string](debounce.ObserverFuncs[string]{
			OnDeparted: func(candidate string) {
				log.Debug().Str("candidate", candidate).Msg("signal departed")
				state.DefaultState.SetCandidate(name, candidate)
				span.AddEvent("departed", trace.WithAttributes(attribute.String("candidate", candidate)))
			},
			OnNoise: func(candidate string, discarded string) {
				log.Debug().
					Str("candidate", candidate).
					Str("discarded", discarded).
					Msg("candidate discarded")
				state.DefaultState.SetNoise(name)
				span.AddEvent("noise", trace.WithAttributes(
					attribute.String("candidate", candidate),
					attribute.String("discarded", discarded),
				))
				noise.notify(candidate, discarded)
			},
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	return err
}

type noiseEvent struct {
	candidate string
	discarded string
}

// noiseNotifier sends noise notifications outside of the debounce loop.
type noiseNotifier struct {
	events chan noiseEvent
	name   string
}

func startNoiseNotifier(
	ctx context.Context,
	name string,
	labels map[string]string,
) *noiseNotifier {
	n := &noiseNotifier{
		events: make(chan noiseEvent, noiseBacklog),
		name:   name,
	}
	go func() {
		for ev := range n.events {
			if err := notifier.NotifyNoise(ctx, name, labels, ev.candidate, ev.discarded); err != nil {
				log.Err(err).Str("signal", name).Msg("notify failed")
			}
		}
	}()
	return n
}

// notify queues a notification. It never blocks: when the backlog is full the
// notification is dropped.
func (n *noiseNotifier) notify(candidate string, discarded string) {
	select {
	case n.events <- noiseEvent{candidate: candidate, discarded: discarded}:
	default:
		log.Warn().Str("signal", n.name).Msg("noise notification dropped")
	}
}

func (n *noiseNotifier) stop() {
	close(n.events)
}

func resolveBaseline(ctx context.Context, src *source, params *Params) (string, error) {
	if params.Baseline != nil {
		return *params.Baseline, nil
	}
	return src.initial(ctx)
}
