package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}, WithInitialDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDo_AttemptBound(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("always fails")
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 3, calls, "op runs at most MaxAttempts times")
}

func TestDo_FinalErrorUnchanged(t *testing.T) {
	first := errors.New("first failure")
	last := errors.New("final failure")

	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, first
		}
		return 0, last
	}, WithMaxAttempts(2), WithInitialDelay(time.Millisecond))

	// The error from the final attempt comes back as-is, not wrapped.
	assert.Same(t, last, err)
}

func TestDo_BackoffGrows(t *testing.T) {
	var gaps []time.Time
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		gaps = append(gaps, time.Now())
		return 0, errors.New("fail")
	}, WithMaxAttempts(3), WithInitialDelay(20*time.Millisecond), WithBackoffFactor(2))

	require.Error(t, err)
	require.Len(t, gaps, 3)

	firstGap := gaps[1].Sub(gaps[0])
	secondGap := gaps[2].Sub(gaps[1])
	assert.GreaterOrEqual(t, firstGap, 20*time.Millisecond)
	assert.GreaterOrEqual(t, secondGap, 40*time.Millisecond)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = Do(ctx, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		}, WithInitialDelay(time.Minute))
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff stops further attempts")
}

func TestDo_MinimumOneAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("fail")
	}, WithMaxAttempts(0))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
