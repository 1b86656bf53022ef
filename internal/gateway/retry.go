package gateway

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// SleepFunc delays between retry attempts. Tests inject a fake.
type SleepFunc func(time.Duration)

// WithRetry runs op up to maxAttempts times, doubling the delay between
// attempts (baseDelay * 2^attempt, no jitter). Every error is considered
// retryable; the last error is returned once attempts are exhausted. The
// context is checked before each attempt so shutdown is not held up by a
// sleeping retry loop.
func WithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxAttempts int, baseDelay time.Duration, sleep SleepFunc) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			sleep(baseDelay << attempt)
		}
	}
	return zero, lastErr
}
