package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/service/dashboard"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type Handler struct {
	service dashboard.DashboardService
}

func NewHandler(service dashboard.DashboardService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetSummary)
}

// GetSummary always answers 200; failed reads show up as zeros.
func (h *Handler) GetSummary(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Load(c.Request.Context()))
}
