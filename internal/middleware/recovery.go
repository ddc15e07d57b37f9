package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
	"github.com/citysmiles/dental-admin/pkg/logger"
)

// Recovery handles panics and logs them appropriately
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.ZL.Error().
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, httputil.Response{
					Status:  "error",
					Message: "Internal server error",
					Code:    int(errors.ErrInternal),
				})
				_ = c.Error(fmt.Errorf("panic: %v", rec))
			}
		}()
		c.Next()
	}
}
