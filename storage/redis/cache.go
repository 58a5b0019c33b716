// Package redis implements the cache, rate limit counter, and anonymous
// visit tracking interfaces on a shared Redis client.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/movedesk/chatbot/core/cache"
)

// Cache implements cache.Cache on Redis. Keys are namespaced with a prefix
// so several caches can share one database.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

var _ cache.Cache = (*Cache)(nil)

func NewCache(rdb *redis.Client, prefix string) *Cache {
	if rdb == nil {
		panic("redis: client is required")
	}
	return &Cache{rdb: rdb, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}
