package appointment

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

type AppointmentService interface {
	Open(ctx context.Context) error
	Close()
	List(filter Filter) Listing
	Get(id string) (model.Appointment, error)
	Defaults() model.Appointment
	Save(ctx context.Context, draft model.Appointment) error
	Delete(ctx context.Context, id string) error
}

const StatusAll = "all"

type Filter struct {
	// Status is one of the appointment statuses, or "all".
	Status string `form:"status"`
}

type Listing struct {
	Appointments []model.Appointment `json:"appointments"`
	Total        int                 `json:"total"`
	Today        int                 `json:"today"`
	Loading      bool                `json:"loading"`
}

type Service struct {
	svc       remote.Service
	table     *readmodel.Table[model.Appointment]
	validator validator.Validator
	opts      service.Options
}

var Spec = readmodel.Spec{
	Table:   model.TableAppointments,
	OrderBy: "appointment_date",
	Joins: []remote.Join{
		{Table: model.TablePatients, ForeignKey: "patient_id", Columns: model.PatientNameColumns},
	},
}

func NewService(svc remote.Service, opts service.Options) *Service {
	opts = opts.WithDefaults()
	return &Service{
		svc: svc,
		table: readmodel.New[model.Appointment](svc, Spec,
			readmodel.WithLogger[model.Appointment](opts.Logger),
			readmodel.WithMetrics[model.Appointment](opts.Metrics)),
		validator: form.NewValidator(),
		opts:      opts,
	}
}

func (s *Service) Topic() string { return model.TableAppointments }

func (s *Service) Open(ctx context.Context) error { return s.table.Activate(ctx) }

func (s *Service) Close() { s.table.Close() }

func (s *Service) OnChange(fn func()) func() {
	return s.table.OnChange(func([]model.Appointment) { fn() })
}

func (s *Service) Snapshot() any { return s.List(Filter{}) }

func (s *Service) List(filter Filter) Listing {
	rows := s.table.Rows()
	today := s.opts.Today()

	listing := Listing{Appointments: make([]model.Appointment, 0, len(rows)), Total: len(rows), Loading: s.table.Loading()}
	for _, a := range rows {
		if a.AppointmentDate == today {
			listing.Today++
		}
		if filter.Status == "" || filter.Status == StatusAll || a.Status == filter.Status {
			listing.Appointments = append(listing.Appointments, a)
		}
	}
	return listing
}

func (s *Service) Get(id string) (model.Appointment, error) {
	for _, a := range s.table.Rows() {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, errors.NotFound("appointment", nil)
}

func (s *Service) Defaults() model.Appointment {
	return model.NewAppointment()
}

func (s *Service) Save(ctx context.Context, draft model.Appointment) error {
	f := form.New[model.Appointment](model.TableAppointments, s.svc, s.validator,
		service.Refresher(s.table.Refresh, s.opts.Logger))
	f.Open(draft)
	return f.Submit(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return service.RemoteErr(s.svc.Delete(ctx, model.TableAppointments, id))
}
