package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/movedesk/chatbot/pkg/ratelimiter"
)

// RateLimitStore implements ratelimiter.Store on Redis so rate windows are
// shared across application instances.
type RateLimitStore struct {
	rdb    *redis.Client
	prefix string
}

var _ ratelimiter.Store = (*RateLimitStore)(nil)

func NewRateLimitStore(rdb *redis.Client, prefix string) *RateLimitStore {
	if rdb == nil {
		panic("redis: client is required")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimitStore{rdb: rdb, prefix: prefix}
}

// Incr bumps the window counter, starting the window's expiry on first
// increment. The three commands run in one MULTI/EXEC round trip.
func (s *RateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := s.prefix + ":" + key

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), time.Now().Add(remaining), nil
}

func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+":"+key).Err()
}
