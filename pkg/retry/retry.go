package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/movedesk/chatbot/core/fault"
)

// Config configures the retry loop.
// The zero value is usable; unset fields fall back to defaults.
type Config struct {
	// MaxAttempts is the total number of attempts including the first
	// (default: 3).
	MaxAttempts int

	// InitialBackoff is the delay before the first retry (default: 500ms).
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff (default: 10s).
	MaxBackoff time.Duration

	// Multiplier grows the backoff between retries (default: 2).
	Multiplier float64

	// Jitter randomizes each backoff by +/- this fraction, 0 to 1
	// (default: 0.1).
	Jitter float64

	// Retryable decides whether an error is worth another attempt.
	// Defaults to retrying everything not classified as permanent by
	// the fault package.
	Retryable func(error) bool

	// OnRetry is invoked before each backoff sleep with the upcoming
	// attempt number (2-based) and the error that triggered the retry.
	OnRetry func(attempt int, err error)
}

func (cfg Config) withDefaults() Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if cfg.Jitter < 0 || cfg.Jitter > 1 {
		cfg.Jitter = 0.1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(err error) bool { return !fault.IsPermanent(err) }
	}
	return cfg
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts, or ctx is canceled. The last error from fn is returned on
// exhaustion; a cancellation during backoff returns ctx.Err().
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(cfg, attempt-1)):
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoff computes the sleep before the given retry (1-based).
func backoff(cfg Config, retry int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(retry-1))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 {
		// Spread uniformly across [d*(1-jitter), d*(1+jitter)].
		d *= 1 + cfg.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(d)
}

// MethodRetryable reports whether a request using the given HTTP method may
// be safely retried against a dependency. DELETE is excluded: replaying a
// delete after an ambiguous failure can remove data written in between.
func MethodRetryable(method string) bool {
	switch method {
	case "GET", "POST", "PUT", "PATCH":
		return true
	default:
		return false
	}
}
