package lookup

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/pkg/httputil"
)

// PatientLister is what backs the patient picker.
type PatientLister interface {
	Patients(ctx context.Context) []model.PatientRef
}

type Handler struct {
	patients   PatientLister
	vocabulary model.Vocabulary
}

func NewHandler(patients PatientLister) *Handler {
	return &Handler{patients: patients, vocabulary: model.NewVocabulary()}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	lookups := r.Group("/lookups")
	{
		lookups.GET("/patients", h.ListPatients)
		lookups.GET("/vocabulary", h.GetVocabulary)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.patients.Patients(c.Request.Context()))
}

func (h *Handler) GetVocabulary(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.vocabulary)
}
