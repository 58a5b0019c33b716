package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config defines the window parameters for a limiter.
type Config struct {
	// Limit is the number of requests allowed per window.
	Limit int64

	// Window is the length of the counting window.
	Window time.Duration
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be > 0, got %d", ErrInvalidConfig, c.Limit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0, got %v", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Result describes the counter state after recording a request.
type Result struct {
	// Count is the number of requests observed in the current window,
	// including the one just recorded.
	Count int64

	// Limit is the configured per-window limit.
	Limit int64

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// Exceeded reports whether the window limit has been crossed.
func (r Result) Exceeded() bool { return r.Count > r.Limit }

// Remaining returns the number of requests left in the window, never negative.
func (r Result) Remaining() int64 {
	if r.Count >= r.Limit {
		return 0
	}
	return r.Limit - r.Count
}

// RetryAfter returns how long until the window resets, never negative.
func (r Result) RetryAfter() time.Duration {
	d := time.Until(r.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// Store persists per-key window counters.
type Store interface {
	// Incr increments the counter for key within a window of the given
	// length, starting a fresh window when the previous one has elapsed.
	// It returns the updated count and the end of the current window.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error
}

// Limiter counts requests per key over a fixed window.
type Limiter struct {
	store Store
	cfg   Config
}

// New creates a limiter backed by the given store.
func New(store Store, cfg Config) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{store: store, cfg: cfg}, nil
}

// Allow records one request for key and returns the resulting counter state.
// A store failure returns a zero Result and the error; callers typically
// fail open on storage errors.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.cfg.Window)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return Result{Count: count, Limit: l.cfg.Limit, ResetAt: resetAt}, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
