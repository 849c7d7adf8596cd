package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/reservation-engine/pkg/logger"
)

// RateLimitConfig configures a sliding-window rate limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

// RateLimiter enforces a Redis sorted-set sliding window per key,
// per spec.md §7's RATE_LIMIT_ERROR contract.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *logger.Logger
}

func NewRateLimiter(client *redis.Client, config RateLimitConfig, log *logger.Logger) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{redis: client, config: config, logger: log}
}

// Middleware returns the gin handler enforcing the configured limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s", rl.config.KeyFunc(c))
		allowed, remaining, resetAt, err := rl.checkLimit(c.Request.Context(), key)
		if err != nil {
			rl.logger.Error("rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			RespondError(c, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) checkLimit(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time, err error) {
	now := time.Now()
	window := rl.config.Window

	pipe := rl.redis.Pipeline()
	expiredBefore := now.Add(-window).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(expiredBefore, 10))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	pipe.Expire(ctx, key, window+time.Minute)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	currentCount := results[1].(*redis.IntCmd).Val()
	remaining = rl.config.Requests - int(currentCount) - 1
	if remaining < 0 {
		remaining = 0
	}

	return currentCount < int64(rl.config.Requests), remaining, now.Add(window), nil
}
