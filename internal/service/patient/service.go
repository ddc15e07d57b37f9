package patient

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

type PatientService interface {
	Open(ctx context.Context) error
	Close()
	List(filter Filter) Listing
	Get(id string) (model.Patient, error)
	Defaults() model.Patient
	Save(ctx context.Context, draft model.Patient) error
	Delete(ctx context.Context, id string) error
}

type Filter struct {
	Search string `form:"q"`
}

type Listing struct {
	Patients []model.Patient `json:"patients"`
	Total    int             `json:"total"`
	Loading  bool            `json:"loading"`
}

type Service struct {
	svc       remote.Service
	table     *readmodel.Table[model.Patient]
	validator validator.Validator
	opts      service.Options
}

var Spec = readmodel.Spec{Table: model.TablePatients, OrderBy: "created_at"}

func NewService(svc remote.Service, opts service.Options) *Service {
	opts = opts.WithDefaults()
	return &Service{
		svc: svc,
		table: readmodel.New[model.Patient](svc, Spec,
			readmodel.WithLogger[model.Patient](opts.Logger),
			readmodel.WithMetrics[model.Patient](opts.Metrics)),
		validator: form.NewValidator(),
		opts:      opts,
	}
}

func (s *Service) Topic() string { return model.TablePatients }

func (s *Service) Open(ctx context.Context) error { return s.table.Activate(ctx) }

func (s *Service) Close() { s.table.Close() }

func (s *Service) OnChange(fn func()) func() {
	return s.table.OnChange(func([]model.Patient) { fn() })
}

func (s *Service) Snapshot() any { return s.List(Filter{}) }

// List searches first name, last name, phone and email.
func (s *Service) List(filter Filter) Listing {
	rows := s.table.Rows()
	out := make([]model.Patient, 0, len(rows))
	for _, p := range rows {
		if service.Matches(filter.Search, p.FirstName, p.LastName, p.Phone, p.Email) {
			out = append(out, p)
		}
	}
	return Listing{Patients: out, Total: len(rows), Loading: s.table.Loading()}
}

func (s *Service) Get(id string) (model.Patient, error) {
	for _, p := range s.table.Rows() {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Patient{}, errors.NotFound("patient", nil)
}

func (s *Service) Defaults() model.Patient {
	return model.Patient{}
}

// Save creates the patient when draft has no id and updates it otherwise.
func (s *Service) Save(ctx context.Context, draft model.Patient) error {
	f := form.New[model.Patient](model.TablePatients, s.svc, s.validator,
		service.Refresher(s.table.Refresh, s.opts.Logger))
	f.Open(draft)
	return f.Submit(ctx)
}

// Delete removes the patient remotely; the change feed updates the list.
func (s *Service) Delete(ctx context.Context, id string) error {
	return service.RemoteErr(s.svc.Delete(ctx, model.TablePatients, id))
}
