package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/pkg/logger"
)

// Logger logs one line per request. Bodies are never logged since they carry
// patient data.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		var evt = log.ZL.Info()
		msg := "Request processed"
		switch {
		case statusCode >= 500:
			evt, msg = log.ZL.Error(), "Server error"
		case statusCode >= 400:
			evt, msg = log.ZL.Warn(), "Client error"
		}
		evt.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("duration", latency).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}
