package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/metrics"
	"github.com/thereayou/direct-chat/pkg/logger"
)

// LoggingMiddleware logs every request and records its duration.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, strconv.Itoa(status), latency.Seconds())

		userID := ""
		if v, ok := c.Get(UserIDKey); ok {
			userID = v.(uuid.UUID).String()
		}

		event := logger.Log.Info()
		if status >= 400 {
			event = logger.Log.Warn()
		}
		if status >= 500 {
			event = logger.Log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("user_id", userID).
			Msg("request")
	}
}
