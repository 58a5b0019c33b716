// Package breaker implements the circuit breaker pattern for guarding calls
// to flaky dependencies.
//
// A breaker starts closed and counts consecutive failures. When the count
// reaches the configured threshold the circuit opens and calls fail fast with
// ErrOpen. After the recovery timeout a single trial call is let through
// (half-open); success closes the circuit, failure reopens it.
//
// Basic usage:
//
//	cb := breaker.New(breaker.Config{Name: "openai"})
//
//	err := cb.Do(ctx, func(ctx context.Context) error {
//		return client.Call(ctx)
//	})
//	if errors.Is(err, breaker.ErrOpen) {
//		// dependency is down, serve the degraded path
//	}
//
// Use a Registry to maintain one breaker per dependency:
//
//	reg := breaker.NewRegistry(breaker.Config{})
//	cb := reg.Get("postmark")
package breaker
