package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/core/fault"
	"github.com/movedesk/chatbot/pkg/retry"
)

var errTransient = errors.New("connection reset")

func fastConfig() retry.Config {
	return retry.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("first attempt succeeds", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors until success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
			calls++
			if calls < 3 {
				return fault.Connection(errTransient)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts attempts and returns last error", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
			calls++
			return fault.Timeout(errTransient)
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors fail immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0
		cause := errors.New("bad payload")
		err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
			calls++
			return fault.Validation(cause)
		})

		require.ErrorIs(t, err, cause)
		assert.Equal(t, 1, calls)
	})

	t.Run("unclassified errors are retried", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := retry.Do(context.Background(), fastConfig(), func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("custom predicate overrides default", func(t *testing.T) {
		t.Parallel()

		cfg := fastConfig()
		cfg.Retryable = func(error) bool { return false }

		calls := 0
		err := retry.Do(context.Background(), cfg, func(context.Context) error {
			calls++
			return errTransient
		})

		require.ErrorIs(t, err, errTransient)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancellation stops backoff wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		cfg := fastConfig()
		cfg.InitialBackoff = time.Minute

		calls := 0
		done := make(chan error, 1)
		go func() {
			done <- retry.Do(ctx, cfg, func(context.Context) error {
				calls++
				return errTransient
			})
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 1, calls)
		case <-time.After(time.Second):
			t.Fatal("retry loop did not observe cancellation")
		}
	})

	t.Run("reports each retry", func(t *testing.T) {
		t.Parallel()

		cfg := fastConfig()
		var attempts []int
		cfg.OnRetry = func(attempt int, err error) {
			assert.ErrorIs(t, err, errTransient)
			attempts = append(attempts, attempt)
		}

		_ = retry.Do(context.Background(), cfg, func(context.Context) error {
			return errTransient
		})

		assert.Equal(t, []int{2, 3}, attempts)
	})
}

func TestMethodRetryable(t *testing.T) {
	t.Parallel()

	for _, method := range []string{"GET", "POST", "PUT", "PATCH"} {
		assert.True(t, retry.MethodRetryable(method), method)
	}
	for _, method := range []string{"DELETE", "HEAD", "OPTIONS", "TRACE"} {
		assert.False(t, retry.MethodRetryable(method), method)
	}
}
