package signal_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Darkness4/debounce-go/signal"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	// Arrange
	counter := signal.NewCounter(3, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Act
	first, err1 := counter.WaitUntilNot(ctx, 3)
	second, err2 := counter.WaitUntilNot(ctx, 3)
	_, err3 := counter.WaitUntilNot(ctx, 3)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, 4, first)
	require.Equal(t, 5, second)
	require.ErrorIs(t, err3, context.DeadlineExceeded)
	require.Equal(t, 3, counter.Calls())
}

func TestFeedWaitUntilNot(t *testing.T) {
	// Arrange
	feed := signal.NewFeed("a")
	result := make(chan string, 1)

	// Act
	go func() {
		v, err := feed.WaitUntilNot(context.Background(), "a")
		if err == nil {
			result <- v
		}
	}()
	time.Sleep(10 * time.Millisecond)
	feed.Publish("a")
	feed.Publish("b")

	// Assert
	select {
	case v := <-result:
		require.Equal(t, "b", v)
	case <-time.After(time.Second):
		require.Fail(t, "waiter was not woken up")
	}
	require.Equal(t, "b", feed.Value())
}

func TestFeedWaitPublished(t *testing.T) {
	// Arrange
	feed := signal.NewFeed("")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	_, errBefore := feed.WaitPublished(ctx)
	feed.Publish("")
	v, err := feed.WaitPublished(context.Background())

	// Assert
	require.ErrorIs(t, errBefore, context.DeadlineExceeded)
	require.NoError(t, err)
	require.Equal(t, "", v, "publishing the initial value still counts")
	feed.Publish("up")
	v, err = feed.WaitPublished(context.Background())
	require.NoError(t, err)
	require.Equal(t, "up", v)
}

func TestFeedReturnsImmediatelyWhenDifferent(t *testing.T) {
	feed := signal.NewFeed(1)

	v, err := feed.WaitUntilNot(context.Background(), 2)

	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestFeedCanceled(t *testing.T) {
	feed := signal.NewFeed(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := feed.WaitUntilNot(ctx, 1)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeedRun(t *testing.T) {
	// Arrange
	feed := signal.NewFeed(0)
	values := make(chan int)

	// Act
	done := make(chan error, 1)
	go func() {
		done <- feed.Run(context.Background(), values)
	}()
	values <- 1
	values <- 2
	close(values)

	// Assert
	require.NoError(t, <-done)
	require.Equal(t, 2, feed.Value())
}

func TestPoller(t *testing.T) {
	// Arrange
	var calls atomic.Int64
	poller := signal.NewPoller(func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		switch {
		case n == 2:
			return 0, errors.New("transient")
		case n < 4:
			return 0, nil
		default:
			return 42, nil
		}
	}, 5*time.Millisecond)

	// Act
	v, err := poller.WaitUntilNot(context.Background(), 0)

	// Assert
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, int64(4), calls.Load())
}

func TestPollerCanceled(t *testing.T) {
	poller := signal.NewPoller(func(ctx context.Context) (int, error) {
		return 0, nil
	}, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := poller.WaitUntilNot(ctx, 0)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}
