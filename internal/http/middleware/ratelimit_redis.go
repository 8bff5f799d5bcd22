package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tapminer/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// UseRedis installs the shared Redis client used by the limiters. A nil
// client turns every limiter into a pass-through.
func UseRedis(client *redis.Client) {
	redisClient = client
}

// hit increments the fixed-window counter stored under key and returns the
// new count. The first hit in a window sets the expiry.
func hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
			logger.Warn("rate limiter expire failed", "key", key, "error", err)
		}
	}
	return val, nil
}

func windowSeconds(window time.Duration) string {
	return strconv.FormatInt(int64(window.Seconds()), 10)
}

// RedisRateLimit implements a fixed-window rate limiter per client IP using
// Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		key := "rl:" + windowSeconds(window) + ":" + c.ClientIP()
		val, err := hit(c.Request.Context(), key, window)
		if err != nil {
			// fail-open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "rate limit exceeded",
			})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
