package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/movedesk/chatbot/core/cache"
)

const configCacheKey = "chat:config:active"

// CachedConfigs is a read-through cache over a ConfigStore. The active
// configuration is read on every message, so it is kept hot for the TTL
// instead of hitting the database each time. Cache backend failures are
// treated as misses; the inner store stays the source of truth.
type CachedConfigs struct {
	inner ConfigStore
	cache cache.Cache
	ttl   time.Duration
}

var _ ConfigStore = (*CachedConfigs)(nil)

// NewCachedConfigs wraps the store with a TTL cache (default: 1 minute).
func NewCachedConfigs(inner ConfigStore, c cache.Cache, ttl time.Duration) *CachedConfigs {
	if inner == nil {
		panic("chat: config store is required")
	}
	if c == nil {
		panic("chat: cache is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedConfigs{inner: inner, cache: c, ttl: ttl}
}

// ActiveConfig implements ConfigStore.
func (s *CachedConfigs) ActiveConfig(ctx context.Context) (Config, error) {
	if raw, ok, err := s.cache.Get(ctx, configCacheKey); err == nil && ok {
		var cfg Config
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return cfg, nil
		}
	}

	cfg, err := s.inner.ActiveConfig(ctx)
	if err != nil {
		return Config{}, err
	}
	if raw, err := json.Marshal(cfg); err == nil {
		_ = s.cache.Set(ctx, configCacheKey, raw, s.ttl)
	}
	return cfg, nil
}

// SaveConfig implements ConfigStore. The cached copy is invalidated so the
// next read sees the new configuration immediately.
func (s *CachedConfigs) SaveConfig(ctx context.Context, cfg Config) error {
	if err := s.inner.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, configCacheKey)
	return nil
}
