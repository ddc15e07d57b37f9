package prescription

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

type PrescriptionService interface {
	Open(ctx context.Context) error
	Close()
	List() Listing
	Get(id string) (model.Prescription, error)
	Defaults() model.PrescriptionDraft
	Create(ctx context.Context, draft model.PrescriptionDraft) error
	Delete(ctx context.Context, id string) error
}

type Listing struct {
	Prescriptions []model.Prescription `json:"prescriptions"`
	Total         int                  `json:"total"`
	ItemCount     int                  `json:"item_count"`
	Loading       bool                 `json:"loading"`
}

type Service struct {
	svc        remote.Service
	table      *readmodel.Table[model.Prescription]
	validator  validator.Validator
	compensate bool
	opts       service.Options
}

// Spec also follows prescription_items so items written after their header
// show up.
var Spec = readmodel.Spec{
	Table:   model.TablePrescriptions,
	OrderBy: "prescribed_date",
	Joins: []remote.Join{
		{Table: model.TablePatients, ForeignKey: "patient_id", Columns: model.PatientNameColumns},
	},
	Also: []string{model.TablePrescriptionItems},
}

// NewService builds the view. With compensate set, a prescription whose
// items failed to save is deleted again.
func NewService(svc remote.Service, compensate bool, opts service.Options) *Service {
	opts = opts.WithDefaults()
	return &Service{
		svc: svc,
		table: readmodel.New[model.Prescription](svc, Spec,
			readmodel.WithFetch[model.Prescription](FetchWithItems),
			readmodel.WithLogger[model.Prescription](opts.Logger),
			readmodel.WithMetrics[model.Prescription](opts.Metrics)),
		validator:  form.NewValidator(),
		compensate: compensate,
		opts:       opts,
	}
}

// FetchWithItems reads the prescriptions, then their items in one query, and
// attaches each item to its prescription.
func FetchWithItems(ctx context.Context, r remote.Reader, spec readmodel.Spec) ([]model.Prescription, error) {
	rxs, err := readmodel.DecodeFetch[model.Prescription](ctx, r, spec)
	if err != nil {
		return nil, err
	}
	if len(rxs) == 0 {
		return rxs, nil
	}

	ids := make([]any, len(rxs))
	for i, rx := range rxs {
		ids[i] = rx.ID
	}
	res, err := r.Select(ctx, model.TablePrescriptionItems, remote.Query{
		Filters: []remote.Filter{remote.In("prescription_id", ids...)},
		Order:   &remote.Order{Column: "created_at", Ascending: true},
	})
	if err != nil {
		return nil, err
	}
	var items []model.PrescriptionItem
	if err := remote.Decode(res.Rows, &items); err != nil {
		return nil, err
	}

	byRx := make(map[string][]model.PrescriptionItem, len(rxs))
	for _, it := range items {
		byRx[it.PrescriptionID] = append(byRx[it.PrescriptionID], it)
	}
	for i := range rxs {
		rxs[i].Items = byRx[rxs[i].ID]
		if rxs[i].Items == nil {
			rxs[i].Items = []model.PrescriptionItem{}
		}
	}
	return rxs, nil
}

func (s *Service) Topic() string { return model.TablePrescriptions }

func (s *Service) Open(ctx context.Context) error { return s.table.Activate(ctx) }

func (s *Service) Close() { s.table.Close() }

func (s *Service) OnChange(fn func()) func() {
	return s.table.OnChange(func([]model.Prescription) { fn() })
}

func (s *Service) Snapshot() any { return s.List() }

func (s *Service) List() Listing {
	rows := s.table.Rows()
	listing := Listing{Prescriptions: rows, Total: len(rows), Loading: s.table.Loading()}
	for _, rx := range rows {
		listing.ItemCount += len(rx.Items)
	}
	return listing
}

func (s *Service) Get(id string) (model.Prescription, error) {
	for _, rx := range s.table.Rows() {
		if rx.ID == id {
			return rx, nil
		}
	}
	return model.Prescription{}, errors.NotFound("prescription", nil)
}

func (s *Service) Defaults() model.PrescriptionDraft {
	return model.NewPrescriptionDraft(s.opts.Clock())
}

// Create writes the prescription and its items. Prescriptions are never
// edited in place.
func (s *Service) Create(ctx context.Context, draft model.PrescriptionDraft) error {
	f := form.NewPrescriptionForm(s.svc, s.validator,
		service.Refresher(s.table.Refresh, s.opts.Logger),
		form.WithCompensation(s.compensate),
		form.WithLogger(s.opts.Logger))
	f.Open(draft)
	return f.Submit(ctx)
}

// Delete removes the prescription; its items go with it remotely.
func (s *Service) Delete(ctx context.Context, id string) error {
	return service.RemoteErr(s.svc.Delete(ctx, model.TablePrescriptions, id))
}
