package treatment

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/service/treatment"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type Handler struct {
	service treatment.TreatmentService
}

func NewHandler(service treatment.TreatmentService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	treatments := r.Group("/treatments")
	{
		treatments.GET("", h.ListTreatments)
		treatments.GET("/defaults", h.Defaults)
		treatments.GET("/:id", h.GetTreatment)
		treatments.POST("", h.CreateTreatment)
		treatments.PUT("/:id", h.UpdateTreatment)
		treatments.DELETE("/:id", h.DeleteTreatment)
	}
}

func (h *Handler) ListTreatments(c *gin.Context) {
	var filter treatment.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid query", err))
		return
	}
	httputil.RespondWithSuccess(c, h.service.List(filter))
}

func (h *Handler) Defaults(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Defaults())
}

func (h *Handler) GetTreatment(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	t, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) CreateTreatment(c *gin.Context) {
	draft := h.service.Defaults()
	if err := handler.BindJSON(c, &draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	draft.ID = ""
	draft.Patient = nil
	if err := h.service.Save(c.Request.Context(), draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, h.service.List(treatment.Filter{}))
}

func (h *Handler) UpdateTreatment(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	draft, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := handler.BindJSON(c, &draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	draft.ID = id
	draft.Patient = nil
	if err := h.service.Save(c.Request.Context(), draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.service.List(treatment.Filter{}))
}

func (h *Handler) DeleteTreatment(c *gin.Context) {
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
