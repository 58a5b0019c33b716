// Package async runs side work off the request path with a bounded wait.
// Used for deliveries that should not stall the caller, like transcript
// emails, where the caller still wants to observe the outcome within a
// deadline.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the work is still running
// at the deadline. The goroutine keeps running; only the wait is abandoned.
var ErrTimeout = errors.New("async: await timed out")

// Future is a handle to work started by Exec.
type Future struct {
	err  error
	done chan struct{}
}

// Exec runs fn in a goroutine and returns a handle for awaiting the result.
// A pre-cancelled context fails fast without invoking fn.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *Future {
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}

// Await blocks until the work completes and returns its error.
func (f *Future) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for completion up to timeout.
func (f *Future) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Done reports completion without blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
