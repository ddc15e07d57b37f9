package appointment

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/service/appointment"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type Handler struct {
	service appointment.AppointmentService
}

func NewHandler(service appointment.AppointmentService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/defaults", h.Defaults)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

// ListAppointments filters by ?status=, where "all" or nothing means every
// status.
func (h *Handler) ListAppointments(c *gin.Context) {
	var filter appointment.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid query", err))
		return
	}
	httputil.RespondWithSuccess(c, h.service.List(filter))
}

func (h *Handler) Defaults(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Defaults())
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	a, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
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
	httputil.RespondWithCreated(c, h.service.List(appointment.Filter{}))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
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
	httputil.RespondWithSuccess(c, h.service.List(appointment.Filter{}))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
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
