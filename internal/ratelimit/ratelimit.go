package ratelimit

import (
	"context"
	"time"

	redisadapter "cinema-ticketing/internal/adapters/redis"
	"cinema-ticketing/internal/observability"
)

// RateLimiter is a fixed-window counter over redis, keyed per caller.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func New(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		return false
	}

	if incr.Val() > int64(rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
