// Package retry runs operations with bounded retries and exponential backoff.
//
// Retries stop early for errors classified as permanent (validation,
// permission, not found) and for context cancellation, which is checked
// before every backoff sleep. Backoff grows exponentially with optional
// jitter to avoid thundering herds.
//
// Usage:
//
//	err := retry.Do(ctx, retry.Config{MaxAttempts: 3}, func(ctx context.Context) error {
//		return provider.Complete(ctx, prompt)
//	})
package retry
