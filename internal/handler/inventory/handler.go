package inventory

import (
	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/handler"
	"github.com/citysmiles/dental-admin/internal/service/inventory"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

type Handler struct {
	service inventory.InventoryService
}

func NewHandler(service inventory.InventoryService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	items := r.Group("/inventory")
	{
		items.GET("", h.ListItems)
		items.GET("/defaults", h.Defaults)
		items.GET("/:id", h.GetItem)
		items.POST("", h.CreateItem)
		items.PUT("/:id", h.UpdateItem)
		items.DELETE("/:id", h.DeleteItem)
	}
}

// ListItems takes ?q= and ?low=true.
func (h *Handler) ListItems(c *gin.Context) {
	var filter inventory.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid query", err))
		return
	}
	httputil.RespondWithSuccess(c, h.service.List(filter))
}

func (h *Handler) Defaults(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.service.Defaults())
}

func (h *Handler) GetItem(c *gin.Context) {
	id, err := handler.ParseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	it, err := h.service.Get(id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, it)
}

func (h *Handler) CreateItem(c *gin.Context) {
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
	httputil.RespondWithCreated(c, h.service.List(inventory.Filter{}))
}

func (h *Handler) UpdateItem(c *gin.Context) {
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
	httputil.RespondWithSuccess(c, h.service.List(inventory.Filter{}))
}

func (h *Handler) DeleteItem(c *gin.Context) {
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
