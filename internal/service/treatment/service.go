package treatment

import (
	"context"

	"github.com/citysmiles/dental-admin/internal/form"
	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/readmodel"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/service"
	"github.com/citysmiles/dental-admin/pkg/errors"
	"github.com/citysmiles/dental-admin/pkg/validator"
)

type TreatmentService interface {
	Open(ctx context.Context) error
	Close()
	List(filter Filter) Listing
	Get(id string) (model.Treatment, error)
	Defaults() model.Treatment
	Save(ctx context.Context, draft model.Treatment) error
	Delete(ctx context.Context, id string) error
}

type Filter struct {
	Search string `form:"q"`
}

type Listing struct {
	Treatments []model.Treatment `json:"treatments"`
	Total      int               `json:"total"`
	// Revenue sums the cost of completed treatments over the whole table,
	// whatever the search.
	Revenue float64 `json:"revenue"`
	Loading bool    `json:"loading"`
}

type Service struct {
	svc       remote.Service
	table     *readmodel.Table[model.Treatment]
	validator validator.Validator
	opts      service.Options
}

var Spec = readmodel.Spec{
	Table:   model.TableTreatments,
	OrderBy: "performed_at",
	Joins: []remote.Join{
		{Table: model.TablePatients, ForeignKey: "patient_id", Columns: model.PatientNameColumns},
	},
}

func NewService(svc remote.Service, opts service.Options) *Service {
	opts = opts.WithDefaults()
	return &Service{
		svc: svc,
		table: readmodel.New[model.Treatment](svc, Spec,
			readmodel.WithLogger[model.Treatment](opts.Logger),
			readmodel.WithMetrics[model.Treatment](opts.Metrics)),
		validator: form.NewValidator(),
		opts:      opts,
	}
}

func (s *Service) Topic() string { return model.TableTreatments }

func (s *Service) Open(ctx context.Context) error { return s.table.Activate(ctx) }

func (s *Service) Close() { s.table.Close() }

func (s *Service) OnChange(fn func()) func() {
	return s.table.OnChange(func([]model.Treatment) { fn() })
}

func (s *Service) Snapshot() any { return s.List(Filter{}) }

// List searches patient first name, last name and procedure.
func (s *Service) List(filter Filter) Listing {
	rows := s.table.Rows()
	listing := Listing{
		Treatments: make([]model.Treatment, 0, len(rows)),
		Total:      len(rows),
		Revenue:    CompletedRevenue(rows),
		Loading:    s.table.Loading(),
	}
	for _, t := range rows {
		var first, last string
		if t.Patient != nil {
			first, last = t.Patient.FirstName, t.Patient.LastName
		}
		if service.Matches(filter.Search, first, last, t.ProcedureName) {
			listing.Treatments = append(listing.Treatments, t)
		}
	}
	return listing
}

// CompletedRevenue sums cost over completed treatments. A completed
// treatment that cost nothing still counts, it just adds zero.
func CompletedRevenue(rows []model.Treatment) float64 {
	var sum float64
	for _, t := range rows {
		if t.Status == model.TreatmentCompleted {
			sum += t.Cost
		}
	}
	return sum
}

func (s *Service) Get(id string) (model.Treatment, error) {
	for _, t := range s.table.Rows() {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Treatment{}, errors.NotFound("treatment", nil)
}

func (s *Service) Defaults() model.Treatment {
	return model.NewTreatment(s.opts.Clock())
}

func (s *Service) Save(ctx context.Context, draft model.Treatment) error {
	f := form.New[model.Treatment](model.TableTreatments, s.svc, s.validator,
		service.Refresher(s.table.Refresh, s.opts.Logger))
	f.Open(draft)
	return f.Submit(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return service.RemoteErr(s.svc.Delete(ctx, model.TableTreatments, id))
}
