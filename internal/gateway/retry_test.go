package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Run("returns on first success without sleeping", func(t *testing.T) {
		var slept []time.Duration
		sleep := func(d time.Duration) { slept = append(slept, d) }

		result, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
			return "ok", nil
		}, 3, time.Second, sleep)

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Empty(t, slept)
	})

	t.Run("doubles the delay between attempts", func(t *testing.T) {
		var slept []time.Duration
		sleep := func(d time.Duration) { slept = append(slept, d) }
		calls := 0

		_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		}, 3, time.Second, sleep)

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	})

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		result, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		}, 3, time.Millisecond, func(time.Duration) {})

		require.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0

		_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("transient")
		}, 5, time.Millisecond, func(time.Duration) {})

		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("last error is preserved", func(t *testing.T) {
		wantErr := errors.New("final failure")
		_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
			return 0, wantErr
		}, 2, time.Millisecond, func(time.Duration) {})

		assert.ErrorIs(t, err, wantErr)
	})
}
