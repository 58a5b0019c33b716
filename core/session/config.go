package session

import "time"

// Config holds session manager configuration.
type Config struct {
	// TTL is the idle timeout after which a session is considered expired.
	TTL time.Duration

	// AbsoluteTTL caps total session lifetime regardless of activity.
	AbsoluteTTL time.Duration

	// TouchInterval throttles last-activity updates (0 = update on every request).
	TouchInterval time.Duration

	// MaxConcurrent caps active sessions per authenticated user.
	MaxConcurrent int

	// RetainEnded is how long ended sessions stay in the store for
	// analytics before the sweeper deletes them.
	RetainEnded time.Duration

	// SweepBatch bounds how many sessions one sweep statement may touch,
	// keeping sweep transactions short.
	SweepBatch int
}

func defaultConfig() *Config {
	return &Config{
		TTL:           30 * time.Minute,
		AbsoluteTTL:   14 * 24 * time.Hour,
		TouchInterval: time.Minute,
		MaxConcurrent: 5,
		RetainEnded:   30 * 24 * time.Hour,
		SweepBatch:    500,
	}
}

// Option is a functional option for configuring the session manager.
type Option func(*Config)

// WithTTL sets the session idle timeout.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.TTL = ttl
		}
	}
}

// WithAbsoluteTTL sets the maximum total session lifetime.
func WithAbsoluteTTL(ttl time.Duration) Option {
	return func(c *Config) {
		if ttl > 0 {
			c.AbsoluteTTL = ttl
		}
	}
}

// WithTouchInterval sets the minimum time between last-activity updates.
func WithTouchInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.TouchInterval = interval
		}
	}
}

// WithMaxConcurrent sets the per-user active session cap.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxConcurrent = n
		}
	}
}

// WithRetainEnded sets how long ended sessions are kept before deletion.
func WithRetainEnded(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RetainEnded = d
		}
	}
}

// WithSweepBatchSize sets the per-statement bound for sweep operations.
func WithSweepBatchSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SweepBatch = n
		}
	}
}
