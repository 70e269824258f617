package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ConnectRedis opens a Redis client and verifies the connection
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// RateLimiter enforces a fixed-window request limit per principal, backed by
// Redis so all instances share the same counters.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rdb *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
	}
}

// Allow increments the principal's window counter and reports whether the
// request is within the limit. Redis being unavailable fails open: limiting
// is protection, not an availability dependency.
func (l *RateLimiter) Allow(ctx context.Context, principal string) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s", principal)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		log.WithFields(log.Fields{
			"principal": principal,
			"error":     err,
		}).Warn("Rate limiter unavailable, allowing request")
		return true, nil
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			log.WithError(err).Warn("Failed to set rate limit window expiry")
		}
	}

	return count <= l.limit, nil
}
