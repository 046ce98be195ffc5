// Package metrics provides a way to record metrics.
package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/darkness4/debounce-go"

var (
	// Debounce metrics
	Debounce struct {
		// Runs is the number of debounce calls.
		Runs metric.Int64Counter
		// Noise is the number of candidates discarded as noise.
		Noise metric.Int64Counter
		// Errors is the number of failed debounce calls.
		Errors metric.Int64Counter
		// StabilizationTime is the time taken by a debounce call to return a
		// stable value.
		StabilizationTime metric.Float64Histogram
	}

	// Watcher metrics
	Watcher struct {
		// State is the current state of the watcher.
		State metric.Int64Gauge
		// Transitions is the number of stable transitions.
		Transitions metric.Int64Counter
	}
)

func init() {
	// The global provider delegates to the SDK once it is set.
	InitMetrics(otel.GetMeterProvider())
}

// InitMetrics initializes the metrics. Must be called as soon as possible.
func InitMetrics(provider metric.MeterProvider) {
	meter := provider.Meter(meterName)

	var err error
	Debounce.Runs, err = meter.Int64Counter(
		"debounce.runs",
		metric.WithDescription("Number of debounce calls"),
	)
	if err != nil {
		panic(err)
	}
	Debounce.Noise, err = meter.Int64Counter(
		"debounce.noise",
		metric.WithDescription("Number of candidates discarded as noise"),
	)
	if err != nil {
		panic(err)
	}
	Debounce.Errors, err = meter.Int64Counter(
		"debounce.errors",
		metric.WithDescription("Number of failed debounce calls"),
	)
	if err != nil {
		panic(err)
	}
	Debounce.StabilizationTime, err = meter.Float64Histogram(
		"debounce.stabilization.time",
		metric.WithDescription("Time taken to return a stable value"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(err)
	}

	// States
	Watcher.State, err = meter.Int64Gauge(
		"watcher.state",
		metric.WithDescription("Current state of the watcher"),
	)
	if err != nil {
		panic(err)
	}
	Watcher.Transitions, err = meter.Int64Counter(
		"watcher.transitions",
		metric.WithDescription("Number of stable transitions"),
	)
	if err != nil {
		panic(err)
	}
}
