package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Handler struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHandler runs checks on readiness probes; liveness never touches them.
func NewHandler(checks map[string]Check) *Handler {
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"checks": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
