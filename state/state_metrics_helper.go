package state

import (
	"context"

	"github.com/Darkness4/debounce-go/telemetry/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func signalAttributes(name string, labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)+2)
	attrs = append(attrs, attribute.String("signal", name))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

// setStateMetrics demuxes the state to the metrics.
func setStateMetrics(
	ctx context.Context,
	name string,
	state DebounceState,
	labels map[string]string,
) {
	m := metrics.Watcher.State
	attrs := signalAttributes(name, labels)
	m.Record(
		ctx,
		1,
		metric.WithAttributes(append(attrs, attribute.String("state", state.String()))...),
	)
	// Remove the rest of the states from the metrics.
	for i := DebounceStateUnspecified; i <= DebounceStateCanceled; i++ {
		if i != state {
			m.Record(
				ctx,
				0,
				metric.WithAttributes(append(attrs, attribute.String("state", i.String()))...),
			)
		}
	}
}

func recordNoise(ctx context.Context, name string, labels map[string]string) {
	metrics.Debounce.Noise.Add(ctx, 1, metric.WithAttributes(signalAttributes(name, labels)...))
}
