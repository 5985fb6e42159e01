package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces rate limit counters in Redis.
const DefaultKeyPrefix = "contactform:ratelimit:"

// RedisStore is a fixed-window counter shared by every instance pointed at
// the same Redis. Each key gets limit requests per window.
type RedisStore struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// NewRedisStore allows perMinute requests per key per minute.
func NewRedisStore(client redis.Cmdable, perMinute int) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		prefix: DefaultKeyPrefix,
		Clock:  time.Now,
	}
}

// Allow increments the counter for key in the current window.
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := s.Clock()
	windowStart := now.Truncate(s.window)
	k := s.prefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.window+time.Second)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: redis incr %s: %w", k, err)
	}

	if incr.Val() > s.limit {
		return false, windowStart.Add(s.window).Sub(now), nil
	}
	return true, 0, nil
}

// Ping reports whether Redis is reachable. Used by readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
