package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "haulready/pkg/domain-errors"
)

const redisKeyPrefix = "haulready:ratelimit:"

// RedisStore implements Store on a shared Redis instance so multiple server
// processes enforce one global limit. Redis expiry replaces the sweep
// worker: keys disappear when their window ends.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment implements Store using INCR with an expiry set on first use of
// the window.
func (s *RedisStore) Increment(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error) {
	k := redisKeyPrefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit store unavailable")
	}

	if count == 1 {
		if err := s.client.Expire(ctx, k, window).Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rate limit store unavailable")
		}
	}

	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// The key exists without expiry only if Expire failed previously;
		// assume a full window rather than pinning the key forever.
		ttl = window
		_ = s.client.Expire(ctx, k, window).Err()
	}

	now := time.Now()
	resetAt := now.Add(ttl)
	allowed := count <= int64(limit)
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(allowed, resetAt, now),
	}, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit store unavailable")
	}
	return nil
}

// Ping reports whether the backing Redis is reachable. Used by the
// readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
