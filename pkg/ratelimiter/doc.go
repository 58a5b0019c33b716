// Package ratelimiter provides fixed-window request counting with pluggable
// storage backends.
//
// Each key gets a counter that resets when its window elapses. The limiter
// reports whether the counter exceeded the configured limit; callers decide
// whether to block the request or merely flag it, which makes the package
// usable both for hard rate limits and for anomaly detection.
//
// Usage:
//
//	store := ratelimiter.NewMemoryStore()
//
//	limiter, err := ratelimiter.New(store, ratelimiter.Config{
//		Limit:  100,
//		Window: time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "203.0.113.7:user-42")
//	if err != nil {
//		// storage failure, fail open
//	}
//	if result.Exceeded() {
//		// over the limit for this window
//	}
//
// A Redis-backed store for multi-instance deployments lives in
// storage/redis.
package ratelimiter
