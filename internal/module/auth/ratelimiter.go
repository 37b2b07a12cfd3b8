package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/clusterhub/server/internal/utils/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// slidingWindowScript trims the window, and admits the request when the
// remaining count allows it. Returns {allowed, remaining}.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local expiry = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current >= limit then
		return {0, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, expiry)

	return {1, limit - current - 1}
`)

// RateLimiter is a redis-backed sliding window limiter shared by every
// replica. It implements middleware.RateLimiter.
type RateLimiter struct {
	redis redis.UniversalClient
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redis: client}
}

// Allow records a request for key and reports whether it fits in the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	result, err := slidingWindowScript.Run(ctx, r.redis, []string{rateLimitPrefix + key},
		now.UnixNano(),
		now.Add(-window).UnixNano(),
		limit,
		window.Milliseconds()+60000,
		strconv.FormatInt(now.UnixNano(), 10)+":"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return len(result) > 0 && result[0] == 1, nil
}

// GetRemaining returns how many requests key may still make in the window.
func (r *RateLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	windowStart := time.Now().Add(-window).UnixNano()
	count, err := r.redis.ZCount(ctx, rateLimitPrefix+key, "("+strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return max(limit-int(count), 0), nil
}

// Reset clears the counter for key.
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.redis.Del(ctx, rateLimitPrefix+key).Err()
}

var _ middleware.RateLimiter = (*RateLimiter)(nil)
