package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AccountRateLimit limits requests per authenticated account (not per IP).
// JWT must run before it. scope separates independent budgets, e.g. "mine".
func AccountRateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		accountID, ok := c.Get(ContextAccountID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing session"})
			return
		}
		id, ok := accountID.(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid session"})
			return
		}

		key := "acc_rl:" + scope + ":" + strconv.FormatInt(id, 10) + ":" + windowSeconds(window)
		val, err := hit(c.Request.Context(), key, window)
		if err != nil {
			c.Header("X-AccountRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-AccountRateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-AccountRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(scope + ":" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "too many " + scope + " requests",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope + ":" + c.FullPath()).Inc()
		c.Next()
	}
}
