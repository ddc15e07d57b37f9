package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/service/patient"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

// Invalidator drops cached patient lookups after a patient write.
type Invalidator interface {
	Invalidate()
}

type Handler struct {
	service patient.PatientService
	lookup  Invalidator
}

func NewHandler(service patient.PatientService, lookup Invalidator) *Handler {
	return &Handler{service: service, lookup: lookup}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.GET("/defaults", h.Defaults)
		patients.GET("/:id", h.GetPatient)
		patients.POST("", h.CreatePatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filter patient.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid query", err))
		return
	}
	httputil.RespondWithSuccess(c, h.service.List(filter))
}

func (h *Handler) Defaults(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Defaults())
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	p, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	draft := h.service.Defaults()
	if err := handler.BindJSON(c, &draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	draft.ID = ""
	if err := h.service.Save(c.Request.Context(), draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.invalidate()
	httputil.RespondWithCreated(c, h.service.List(patient.Filter{}))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
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
	if err := h.service.Save(c.Request.Context(), draft); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.invalidate()
	httputil.RespondWithSuccess(c, h.service.List(patient.Filter{}))
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.invalidate()
	httputil.RespondWithSuccess(c, gin.H{"id": id, "deleted": true})
}

func (h *Handler) invalidate() {
	if h.lookup != nil {
		h.lookup.Invalidate()
	}
}

