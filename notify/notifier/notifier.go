// Package notifier holds the process-wide notifier used by the watchers.
package notifier

import (
	"context"

	"github.com/Darkness4/debounce-go/notify"
)

// Notifier is the notifier used to report debounced transitions.
var Notifier = mustDefault()

func mustDefault() *notify.FormatedNotifier {
	n, err := notify.NewFormatedNotifier(notify.NewDummyNotifier(), notify.NotificationFormats{})
	if err != nil {
		panic(err)
	}
	return n
}

// NotifyConfigReloaded notifies the user that the configuration has been reloaded.
func NotifyConfigReloaded(ctx context.Context) error {
	return Notifier.NotifyConfigReloaded(ctx)
}

// NotifyPanicked notifies the user that a watcher has panicked.
func NotifyPanicked(ctx context.Context, capture any) error {
	return Notifier.NotifyPanicked(ctx, capture)
}

// NotifyStable notifies the user that a signal settled on a new value.
func NotifyStable(
	ctx context.Context,
	signal string,
	labels map[string]string,
	previous string,
	value string,
) error {
	return Notifier.NotifyStable(ctx, signal, labels, previous, value)
}

// NotifyNoise notifies the user that a transient value was discarded.
func NotifyNoise(
	ctx context.Context,
	signal string,
	labels map[string]string,
	candidate string,
	discarded string,
) error {
	return Notifier.NotifyNoise(ctx, signal, labels, candidate, discarded)
}

// NotifyError notifies the user that debouncing a signal failed.
func NotifyError(
	ctx context.Context,
	signal string,
	labels map[string]string,
	err error,
) error {
	return Notifier.NotifyError(ctx, signal, labels, err)
}

// NotifyCanceled notifies the user that a signal is no longer watched.
func NotifyCanceled(
	ctx context.Context,
	signal string,
	labels map[string]string,
) error {
	return Notifier.NotifyCanceled(ctx, signal, labels)
}
