package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/service"
)

const recentLimit = 5

type DashboardService interface {
	Load(ctx context.Context) Summary
}

type Summary struct {
	PatientCount       int                   `json:"patient_count"`
	TodayAppointments  int                   `json:"today_appointments"`
	Revenue            float64               `json:"revenue"`
	LowStockCount      int                   `json:"low_stock_count"`
	LowStockItems      []model.InventoryItem `json:"low_stock_items"`
	RecentAppointments []model.Appointment   `json:"recent_appointments"`
}

// Service computes the dashboard from five reads issued in parallel. It does
// not follow changes; every Load reads again.
type Service struct {
	reader remote.Reader
	opts   service.Options
}

func NewService(reader remote.Reader, opts service.Options) *Service {
	return &Service{reader: reader, opts: opts.WithDefaults()}
}

// Load never fails: a read that errors contributes an empty result.
func (s *Service) Load(ctx context.Context) Summary {
	var (
		sum       Summary
		today     = s.opts.Today()
		costs     []model.Treatment
		inventory []model.InventoryItem
	)
	sum.LowStockItems = []model.InventoryItem{}
	sum.RecentAppointments = []model.Appointment{}

	var g errgroup.Group

	g.Go(func() error {
		res, err := s.reader.Select(ctx, model.TablePatients, remote.Query{Columns: []string{"id"}, CountOnly: true})
		if s.failed(err, model.TablePatients) {
			return nil
		}
		sum.PatientCount = res.Count
		return nil
	})

	g.Go(func() error {
		var rows []model.Appointment
		if s.read(ctx, model.TableAppointments, remote.Query{
			Filters: []remote.Filter{remote.Eq("appointment_date", today)},
		}, &rows) {
			sum.TodayAppointments = len(rows)
		}
		return nil
	})

	g.Go(func() error {
		s.read(ctx, model.TableTreatments, remote.Query{
			Columns: []string{"cost"},
			Filters: []remote.Filter{remote.Eq("status", model.TreatmentCompleted)},
		}, &costs)
		return nil
	})

	g.Go(func() error {
		s.read(ctx, model.TableInventory, remote.Query{}, &inventory)
		return nil
	})

	g.Go(func() error {
		var rows []model.Appointment
		if s.read(ctx, model.TableAppointments, remote.Query{
			Joins: []remote.Join{
				{Table: model.TablePatients, ForeignKey: "patient_id", Columns: model.PatientNameColumns},
			},
			Order: &remote.Order{Column: "appointment_date"},
			Limit: recentLimit,
		}, &rows) {
			sum.RecentAppointments = rows
		}
		return nil
	})

	g.Wait()

	for _, t := range costs {
		sum.Revenue += t.Cost
	}
	for _, it := range inventory {
		if it.LowStock() {
			sum.LowStockCount++
			sum.LowStockItems = append(sum.LowStockItems, it)
		}
	}
	return sum
}

func (s *Service) read(ctx context.Context, table string, q remote.Query, out any) bool {
	res, err := s.reader.Select(ctx, table, q)
	if s.failed(err, table) {
		return false
	}
	if err := remote.Decode(res.Rows, out); err != nil {
		s.failed(err, table)
		return false
	}
	return true
}

func (s *Service) failed(err error, table string) bool {
	if err == nil {
		return false
	}
	s.opts.Logger.Warn(err, "dashboard read failed", "table", table)
	return true
}
