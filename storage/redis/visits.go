package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// VisitTracker deduplicates anonymous page visits without creating session
// rows. A visit is identified by client IP, user agent, and path; repeats
// within the window are not counted again.
type VisitTracker struct {
	rdb    *redis.Client
	window time.Duration
}

func NewVisitTracker(rdb *redis.Client, window time.Duration) *VisitTracker {
	if rdb == nil {
		panic("redis: client is required")
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &VisitTracker{rdb: rdb, window: window}
}

// Track records the visit and reports whether it is the first one within
// the window. The daily counter only moves for first visits.
func (t *VisitTracker) Track(ctx context.Context, ip, userAgent, path string) (bool, error) {
	key := "visit:" + visitHash(ip, userAgent, path)

	first, err := t.rdb.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}

	day := time.Now().UTC().Format("2006-01-02")
	pipe := t.rdb.TxPipeline()
	pipe.Incr(ctx, "visits:count:"+day)
	pipe.ExpireNX(ctx, "visits:count:"+day, 40*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Count returns the number of unique visits recorded on the given UTC day.
func (t *VisitTracker) Count(ctx context.Context, day time.Time) (int64, error) {
	n, err := t.rdb.Get(ctx, "visits:count:"+day.UTC().Format("2006-01-02")).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func visitHash(ip, userAgent, path string) string {
	h := sha256.Sum256([]byte(ip + "|" + userAgent + "|" + path))
	return hex.EncodeToString(h[:])
}
