package middleware

import (
	"log/slog"
	"time"

	"tapminer/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request. 5xx at error, 4xx at warn.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if id, ok := c.Get(ContextAccountID); ok {
			attrs = append(attrs, "account_id", id)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		logger.WithContext(c.Request.Context()).Log(c.Request.Context(), level, "http request", attrs...)
	}
}
