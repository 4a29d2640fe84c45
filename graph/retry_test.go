package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("temporary")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (3) exceeded")
	assert.Equal(t, 3, calls)
}

func TestRetry_NonRetryable(t *testing.T) {
	permanent := errors.New("bad request")
	cfg := fastRetry()
	cfg.RetryableErrors = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, fastRetry(), func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_Node(t *testing.T) {
	calls := 0
	fn := WithRetry(func(ctx context.Context, s State) (Update, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("flaky")
		}
		return Update{"x": calls}, nil
	}, fastRetry())

	u, err := fn(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, 2, u["x"])
}

func TestWithTimeout(t *testing.T) {
	slow := func(ctx context.Context, s State) (Update, error) {
		select {
		case <-time.After(time.Second):
			return Update{"x": 1}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	_, err := WithTimeout(slow, 10*time.Millisecond)(context.Background(), State{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fast := func(ctx context.Context, s State) (Update, error) { return Update{"x": 2}, nil }
	u, err := WithTimeout(fast, time.Second)(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, 2, u["x"])
}

func TestBestEffortWithTimeout(t *testing.T) {
	slow := func(ctx context.Context, s State) Result {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return Success(Update{"x": "late"})
	}
	res := BestEffortWithTimeout(slow, 10*time.Millisecond, Update{"x": "placeholder"})(context.Background(), State{})
	assert.True(t, res.Failed())
	assert.Equal(t, "placeholder", res.Update()["x"])
}
