package debounce_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Darkness4/debounce-go/debounce"
	"github.com/Darkness4/debounce-go/signal"
	"github.com/stretchr/testify/require"
)

// scriptedProbe answers probe calls from a script keyed by the argument.
// Missing or exhausted entries block until the context is done.
type scriptedProbe struct {
	mu      sync.Mutex
	answers map[int][]int
	args    []int
	onCall  func(current int)
}

func (p *scriptedProbe) WaitUntilNot(ctx context.Context, current int) (int, error) {
	p.mu.Lock()
	p.args = append(p.args, current)
	onCall := p.onCall
	var next int
	answers := p.answers[current]
	ok := len(answers) > 0
	if ok {
		next = answers[0]
		p.answers[current] = answers[1:]
	}
	p.mu.Unlock()

	if onCall != nil {
		onCall(current)
	}
	if ok {
		return next, nil
	}
	<-ctx.Done()
	return 0, ctx.Err()
}

func (p *scriptedProbe) Args() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.args...)
}

func blockForever(ctx context.Context, _ int) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestDebounceCounter(t *testing.T) {
	// Arrange
	counter := signal.NewCounter(0, 11)

	// Act
	result, err := debounce.Debounce[int](
		context.Background(),
		counter,
		0,
		debounce.Sleep(20*time.Millisecond),
	)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 11, result)
	require.Equal(t, 12, counter.Calls())
}

func TestDebounceSingleTransition(t *testing.T) {
	// Arrange
	const stableWait = 50 * time.Millisecond
	probe := debounce.ProbeFunc[int](func(ctx context.Context, current int) (int, error) {
		if current == 0 {
			return 5, nil
		}
		return blockForever(ctx, current)
	})

	// Act
	start := time.Now()
	result, err := debounce.Debounce[int](
		context.Background(),
		probe,
		0,
		debounce.Sleep(stableWait),
	)
	elapsed := time.Since(start)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 5, result)
	require.GreaterOrEqual(t, elapsed, stableWait)
}

func TestDebounceOscillationNeverResolves(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var noise atomic.Int64
	probe := debounce.ProbeFunc[int](func(ctx context.Context, current int) (int, error) {
		switch current {
		case 0:
			return 1, nil
		case 1:
			time.Sleep(5 * time.Millisecond)
			return 2, nil
		default:
			time.Sleep(5 * time.Millisecond)
			return 1, nil
		}
	})

	// Act
	result, err := debounce.Debounce[int](
		ctx,
		probe,
		0,
		debounce.Sleep(50*time.Millisecond),
		debounce.WithObserver[int](debounce.ObserverFuncs[int]{
			OnNoise: func(int, int) { noise.Add(1) },
		}),
	)

	// Assert
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, result)
	require.Greater(t, noise.Load(), int64(1))
}

func TestDebounceBaselineForever(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Act
	result, err := debounce.Debounce[int](
		ctx,
		debounce.ProbeFunc[int](blockForever),
		0,
		debounce.Sleep(time.Millisecond),
	)

	// Assert
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, result)
}

// Noise discards the newly probed value and restarts from the baseline
// instead of tracking the new value as the next candidate.
func TestDebounceNoiseRestartsFromBaseline(t *testing.T) {
	// Arrange
	probe := &scriptedProbe{
		answers: map[int][]int{
			0: {1, 3},
			1: {2},
		},
	}
	type noise struct{ candidate, discarded int }
	var noises []noise
	var departed []int
	var stable []int

	// Act
	result, err := debounce.Debounce[int](
		context.Background(),
		probe,
		0,
		debounce.Sleep(30*time.Millisecond),
		debounce.WithObserver[int](debounce.ObserverFuncs[int]{
			OnDeparted: func(candidate int) { departed = append(departed, candidate) },
			OnNoise: func(candidate, discarded int) {
				noises = append(noises, noise{candidate, discarded})
			},
			OnStable: func(value int) { stable = append(stable, value) },
		}),
	)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 3, result)
	require.Equal(t, []int{0, 1, 0, 3}, probe.Args())
	require.Equal(t, []int{1, 3}, departed)
	require.Equal(t, []noise{{candidate: 1, discarded: 2}}, noises)
	require.Equal(t, []int{3}, stable)
}

func TestDebounceCancelsProbeAfterStable(t *testing.T) {
	// Arrange
	probeCanceled := make(chan struct{})
	probe := debounce.ProbeFunc[int](func(ctx context.Context, current int) (int, error) {
		if current == 0 {
			return 7, nil
		}
		<-ctx.Done()
		close(probeCanceled)
		return 0, ctx.Err()
	})

	// Act
	result, err := debounce.Debounce[int](
		context.Background(),
		probe,
		0,
		debounce.Sleep(10*time.Millisecond),
	)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 7, result)
	select {
	case <-probeCanceled:
	case <-time.After(time.Second):
		require.Fail(t, "losing probe was not canceled")
	}
}

func TestDebounceJoinsWaiterBeforeRestart(t *testing.T) {
	// Arrange
	var running atomic.Int64
	var overlaps atomic.Int64
	probe := &scriptedProbe{
		answers: map[int][]int{
			0: {1, 2, 3},
			1: {9},
			2: {9},
		},
		onCall: func(current int) {
			if current == 0 && running.Load() != 0 {
				overlaps.Add(1)
			}
		},
	}
	waiter := debounce.WaitFunc(func(ctx context.Context) error {
		running.Add(1)
		defer running.Add(-1)
		select {
		case <-time.After(30 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// Act
	result, err := debounce.Debounce[int](context.Background(), probe, 0, waiter)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 3, result)
	require.Zero(t, overlaps.Load())
	require.Equal(t, []int{0, 1, 0, 2, 0, 3}, probe.Args())
}

func TestDebounceNeverReturnsBaseline(t *testing.T) {
	// Arrange
	feed := signal.NewFeed(0)
	values := []int{1, 0, 2, 0, 1, 2, 0, 0, 1, 0, 2}
	go func() {
		for _, v := range values {
			feed.Publish(v)
			time.Sleep(time.Millisecond)
		}
	}()

	// Act
	result, err := debounce.Debounce[int](
		context.Background(),
		feed,
		0,
		debounce.Sleep(50*time.Millisecond),
	)

	// Assert
	require.NoError(t, err)
	require.NotEqual(t, 0, result)
}

func TestDebounceErrors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		title    string
		probe    debounce.ProbeFunc[int]
		waiter   debounce.WaitFunc
		expected error
	}{
		{
			title: "probe fails on departure",
			probe: func(context.Context, int) (int, error) {
				return 0, errBoom
			},
			waiter: func(context.Context) error {
				return nil
			},
			expected: debounce.ErrProbe,
		},
		{
			title: "probe fails during race",
			probe: func(_ context.Context, current int) (int, error) {
				if current == 0 {
					return 1, nil
				}
				return 0, errBoom
			},
			waiter: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			expected: debounce.ErrProbe,
		},
		{
			title: "stability wait fails",
			probe: func(ctx context.Context, current int) (int, error) {
				if current == 0 {
					return 1, nil
				}
				return blockForever(ctx, current)
			},
			waiter: func(context.Context) error {
				return errBoom
			},
			expected: debounce.ErrStabilityWait,
		},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			// Act
			_, err := debounce.Debounce[int](context.Background(), tt.probe, 0, tt.waiter)

			// Assert
			require.ErrorIs(t, err, tt.expected)
			require.ErrorIs(t, err, errBoom)
		})
	}
}

func TestDebounceCanceledDuringRace(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	probe := debounce.ProbeFunc[int](func(ctx context.Context, current int) (int, error) {
		if current == 0 {
			return 1, nil
		}
		cancel()
		return blockForever(ctx, current)
	})

	// Act
	_, err := debounce.Debounce[int](ctx, probe, 0, debounce.Sleep(time.Hour))

	// Assert
	require.ErrorIs(t, err, context.Canceled)
}
