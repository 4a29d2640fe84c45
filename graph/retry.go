package graph

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for nodes and collaborators.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}
}

// Retry calls fn until it succeeds, the error is not retryable, attempts run out
// or ctx is done. Delays grow by BackoffFactor up to MaxDelay.
func Retry[T any](ctx context.Context, config *RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	var (
		zero    T
		lastErr error
		delay   = config.InitialDelay
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt < attempts {
			select {
			case <-time.After(delay):
				next := time.Duration(float64(delay) * config.BackoffFactor)
				if config.MaxDelay > 0 {
					next = min(next, config.MaxDelay)
				}
				delay = next
			case <-ctx.Done():
				return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
			}
		}
	}
	return zero, fmt.Errorf("max retries (%d) exceeded: %w", attempts, lastErr)
}

// WithRetry wraps a node function with retry logic.
func WithRetry(fn NodeFunc, config *RetryConfig) NodeFunc {
	return func(ctx context.Context, state State) (Update, error) {
		return Retry(ctx, config, func(ctx context.Context) (Update, error) {
			return fn(ctx, state)
		})
	}
}

// AddNodeWithRetry adds a node with retry logic
func (g *Graph) AddNodeWithRetry(name, description string, fn NodeFunc, config *RetryConfig) {
	g.AddNode(name, description, WithRetry(fn, config))
}

// WithTimeout bounds a node function's run time. The node's context is
// cancelled when the timeout elapses.
func WithTimeout(fn NodeFunc, timeout time.Duration) NodeFunc {
	if timeout <= 0 {
		return fn
	}
	return func(ctx context.Context, state State) (Update, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			update Update
			err    error
		}
		ch := make(chan result, 1)
		go func() {
			u, err := callNode(timeoutCtx, fn, state)
			ch <- result{update: u, err: err}
		}()

		select {
		case r := <-ch:
			return r.update, r.err
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("node timed out after %s: %w", timeout, timeoutCtx.Err())
		}
	}
}

// BestEffortWithTimeout is WithTimeout for best-effort bodies: a timeout
// becomes a failure carrying the given placeholder.
func BestEffortWithTimeout(fn BestEffortFunc, timeout time.Duration, placeholder Update) BestEffortFunc {
	if timeout <= 0 {
		return fn
	}
	return func(ctx context.Context, state State) Result {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ch := make(chan Result, 1)
		go func() { ch <- callBestEffort(timeoutCtx, fn, state) }()

		select {
		case r := <-ch:
			return r
		case <-timeoutCtx.Done():
			return Failure(fmt.Errorf("timed out after %s: %w", timeout, timeoutCtx.Err()), placeholder)
		}
	}
}
