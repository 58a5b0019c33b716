// Package cache defines the byte-value TTL cache used for hot read paths
// such as the active chatbot configuration, with an in-memory
// implementation for single-instance deployments and tests. The
// Redis-backed implementation lives in storage/redis.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store. Implementations must be safe for
// concurrent use. A miss is reported via the bool, not an error; errors are
// reserved for backend failures so callers can degrade gracefully.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
