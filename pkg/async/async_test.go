package async_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movedesk/chatbot/pkg/async"
)

func TestExec(t *testing.T) {
	t.Parallel()

	t.Run("returns the function result", func(t *testing.T) {
		t.Parallel()

		f := async.Exec(context.Background(), 21, func(_ context.Context, n int) error {
			if n != 21 {
				return assert.AnError
			}
			return nil
		})
		require.NoError(t, f.Await())
		assert.True(t, f.Done())
	})

	t.Run("propagates the error", func(t *testing.T) {
		t.Parallel()

		f := async.Exec(context.Background(), "x", func(context.Context, string) error {
			return assert.AnError
		})
		assert.ErrorIs(t, f.Await(), assert.AnError)
	})

	t.Run("pre-cancelled context skips the work", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		f := async.Exec(ctx, struct{}{}, func(context.Context, struct{}) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, f.Await(), context.Canceled)
		assert.False(t, ran)
	})

	t.Run("await with timeout abandons slow work", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		f := async.Exec(context.Background(), struct{}{}, func(context.Context, struct{}) error {
			<-release
			return nil
		})

		assert.ErrorIs(t, f.AwaitWithTimeout(10*time.Millisecond), async.ErrTimeout)
		close(release)
		require.NoError(t, f.Await())
	})
}
