package inventory

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

type InventoryService interface {
	Open(ctx context.Context) error
	Close()
	List(filter Filter) Listing
	Get(id string) (model.InventoryItem, error)
	Defaults() model.InventoryItem
	Save(ctx context.Context, draft model.InventoryItem) error
	Delete(ctx context.Context, id string) error
}

type Filter struct {
	Search string `form:"q"`
	// LowOnly keeps only items at or below their threshold.
	LowOnly bool `form:"low"`
}

type Listing struct {
	Items      []model.InventoryItem `json:"items"`
	Total      int                   `json:"total"`
	LowCount   int                   `json:"low_count"`
	TotalValue float64               `json:"total_value"`
	Loading    bool                  `json:"loading"`
}

type Service struct {
	svc       remote.Service
	table     *readmodel.Table[model.InventoryItem]
	validator validator.Validator
	opts      service.Options
}

var Spec = readmodel.Spec{Table: model.TableInventory, OrderBy: "item_name", Ascending: true}

func NewService(svc remote.Service, opts service.Options) *Service {
	opts = opts.WithDefaults()
	return &Service{
		svc: svc,
		table: readmodel.New[model.InventoryItem](svc, Spec,
			readmodel.WithLogger[model.InventoryItem](opts.Logger),
			readmodel.WithMetrics[model.InventoryItem](opts.Metrics)),
		validator: form.NewValidator(),
		opts:      opts,
	}
}

func (s *Service) Topic() string { return model.TableInventory }

func (s *Service) Open(ctx context.Context) error { return s.table.Activate(ctx) }

func (s *Service) Close() { s.table.Close() }

func (s *Service) OnChange(fn func()) func() {
	return s.table.OnChange(func([]model.InventoryItem) { fn() })
}

func (s *Service) Snapshot() any { return s.List(Filter{}) }

// List filters by item name and the low-stock toggle. The aggregates always
// cover the whole table.
func (s *Service) List(filter Filter) Listing {
	rows := s.table.Rows()
	listing := Listing{
		Items:   make([]model.InventoryItem, 0, len(rows)),
		Total:   len(rows),
		Loading: s.table.Loading(),
	}
	for _, it := range rows {
		listing.TotalValue += it.Value()
		if it.LowStock() {
			listing.LowCount++
		}
		if filter.LowOnly && !it.LowStock() {
			continue
		}
		if service.Matches(filter.Search, it.ItemName) {
			listing.Items = append(listing.Items, it)
		}
	}
	return listing
}

func (s *Service) Get(id string) (model.InventoryItem, error) {
	for _, it := range s.table.Rows() {
		if it.ID == id {
			return it, nil
		}
	}
	return model.InventoryItem{}, errors.NotFound("inventory item", nil)
}

func (s *Service) Defaults() model.InventoryItem {
	return model.NewInventoryItem()
}

func (s *Service) Save(ctx context.Context, draft model.InventoryItem) error {
	f := form.New[model.InventoryItem](model.TableInventory, s.svc, s.validator,
		service.Refresher(s.table.Refresh, s.opts.Logger))
	f.Open(draft)
	return f.Submit(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return service.RemoteErr(s.svc.Delete(ctx, model.TableInventory, id))
}
