package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Darkness4/debounce-go/cmd/demo"
	"github.com/Darkness4/debounce-go/cmd/watch"
	"github.com/Darkness4/debounce-go/telemetry"
	"github.com/Darkness4/debounce-go/telemetry/metrics"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"

	shutdown func(context.Context) error
)

var app = &cli.App{
	Name:                 "debounce-go",
	Usage:                "Report the values a signal settles on.",
	Version:              version,
	Suggest:              true,
	EnableBashCompletion: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (trace, debug, info, warn, error).",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:    "trace.stdout",
			Usage:   "Print traces and metrics on stdout.",
			EnvVars: []string{"TRACE_STDOUT"},
		},
	},
	Before: func(cCtx *cli.Context) error {
		level, err := zerolog.ParseLevel(cCtx.String("log-level"))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		zerolog.SetGlobalLevel(level)
		logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		if level <= zerolog.DebugLevel {
			logger = logger.With().Caller().Logger()
		}
		log.Logger = logger

		opts := []telemetry.Option{telemetry.WithPrometheus()}
		if cCtx.Bool("trace.stdout") {
			opts = append(opts, telemetry.WithStdout())
		}
		if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
			opts = append(opts, telemetry.WithOTLP())
		}
		provider, s, err := telemetry.SetupOTELSDK(cCtx.Context, opts...)
		if err != nil {
			return fmt.Errorf("failed to setup telemetry: %w", err)
		}
		metrics.InitMetrics(provider)
		shutdown = s
		return nil
	},
	After: func(cCtx *cli.Context) error {
		if shutdown == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(ctx)
	},
	Commands: []*cli.Command{
		demo.Command,
		watch.Command,
	},
}

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("app crashed")
	}
}
