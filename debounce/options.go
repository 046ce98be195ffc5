package debounce

// Observer receives the transitions of a Debounce call.
//
// Callbacks run on the goroutine calling Debounce and must not block.
type Observer[T comparable] interface {
	// Departed is called when the signal left the baseline with candidate.
	Departed(candidate T)
	// Noise is called when the signal changed from candidate to discarded
	// before the stability wait elapsed.
	Noise(candidate T, discarded T)
	// Stable is called right before Debounce returns value.
	Stable(value T)
}

// ObserverFuncs implements Observer with optional functions.
type ObserverFuncs[T comparable] struct {
	OnDeparted func(candidate T)
	OnNoise    func(candidate T, discarded T)
	OnStable   func(value T)
}

// Departed calls OnDeparted if set.
func (f ObserverFuncs[T]) Departed(candidate T) {
	if f.OnDeparted != nil {
		f.OnDeparted(candidate)
	}
}

// Noise calls OnNoise if set.
func (f ObserverFuncs[T]) Noise(candidate T, discarded T) {
	if f.OnNoise != nil {
		f.OnNoise(candidate, discarded)
	}
}

// Stable calls OnStable if set.
func (f ObserverFuncs[T]) Stable(value T) {
	if f.OnStable != nil {
		f.OnStable(value)
	}
}

type noopObserver[T comparable] struct{}

func (noopObserver[T]) Departed(T) {}
func (noopObserver[T]) Noise(T, T) {}
func (noopObserver[T]) Stable(T) {}

// Option configures a Debounce call.
type Option[T comparable] func(*options[T])

type options[T comparable] struct {
	observer Observer[T]
	// joinProbe makes a winning stability wait also wait for the cancelled
	// probe leg to return.
	joinProbe bool
}

// WithObserver reports the transitions of the call to observer.
func WithObserver[T comparable](observer Observer[T]) Option[T] {
	return func(o *options[T]) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func applyOptions[T comparable](opts []Option[T]) *options[T] {
	o := &options[T]{
		observer: noopObserver[T]{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
