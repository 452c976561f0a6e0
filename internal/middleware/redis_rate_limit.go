package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sadwiik06/SocialFlow/internal/errors"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/util"
	"go.uber.org/zap"
)

// RedisRateLimiter is a fixed-window limiter shared by every server instance
type RedisRateLimiter struct {
	client *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRedisRateLimiter creates a limiter whose keys live under prefix
func NewRedisRateLimiter(client *redis.Client, prefix string, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, config: config, prefix: prefix}
}

// Allow counts one request for key in the current window
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	k := fmt.Sprintf("rate_limit:%s:%s", rl.prefix, key)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, rl.config.Window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(rl.config.Limit) {
		retryAfter := int(ttl.Val().Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// Middleware returns the gin handler. A redis failure answers 503 rather than
// letting the request through unlimited.
func (rl *RedisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := rl.config.key(c)
		ok, retryAfter, err := rl.Allow(ctx, key)
		if err != nil {
			logger.Log.Error("Rate limit check failed", logger.WithIP(key), zap.Error(err))
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}
		if !ok {
			logger.Log.Warn("Rate limit exceeded", logger.WithIP(key), zap.String("path", c.FullPath()))
			rejectRateLimited(c, rl.config.Limit, retryAfter)
			return
		}
		c.Next()
	}
}
