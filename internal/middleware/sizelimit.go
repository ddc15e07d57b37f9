package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/pkg/httputil"
)

// SizeLimit rejects bodies over maxBytes. Bodies without a declared length
// are capped while being read.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Status:  "error",
				Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes),
				Code:    http.StatusRequestEntityTooLarge,
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
