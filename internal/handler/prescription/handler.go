package prescription

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/service/prescription"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type Handler struct {
	service prescription.PrescriptionService
}

func NewHandler(service prescription.PrescriptionService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes has no update route: prescriptions are written once.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rx := r.Group("/prescriptions")
	{
		rx.GET("", h.ListPrescriptions)
		rx.GET("/defaults", h.Defaults)
		rx.GET("/:id", h.GetPrescription)
		rx.POST("", h.CreatePrescription)
		rx.DELETE("/:id", h.DeletePrescription)
	}
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.List())
}

func (h *Handler) Defaults(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Defaults())
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	rx, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rx)
}

// CreatePrescription writes the header and then its items. When the items
// fail the response is an error even though the header may exist.
func (h *Handler) CreatePrescription(c *gin.Context) {
	draft := h.service.Defaults()
	draft.Items = nil
	if err := handler.BindJSON(c, &draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, h.service.List())
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}
