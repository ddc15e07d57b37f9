package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
	"github.com/citysmiles/dental-admin/pkg/logger"
)

// ErrorHandler logs errors attached to the context. It only writes a
// response when the handler did not.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			evt := log.ZL.Warn()
			var appErr *errors.AppError
			if !stderrors.As(e.Err, &appErr) || appErr.StatusCode() >= http.StatusInternalServerError {
				evt = log.ZL.Error()
			}
			evt.Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "Internal server error"
		var appErr *errors.AppError
		if stderrors.As(lastErr, &appErr) {
			status = appErr.StatusCode()
			message = appErr.Error()
		}
		c.JSON(status, httputil.Response{Status: "error", Message: message, Code: status})
	}
}
