package treatment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/remote/memstore"
	"github.com/citysmiles/dental-admin/internal/service"
)

func TestCompletedRevenue(t *testing.T) {
	rows := []model.Treatment{
		{Status: model.TreatmentCompleted, Cost: 250},
		{Status: model.TreatmentCompleted, Cost: 0},
		{Status: model.TreatmentPlanned, Cost: 1000},
		{Status: model.TreatmentInProgress, Cost: 400},
		{Status: model.TreatmentCompleted, Cost: 99.5},
	}
	assert.Equal(t, 349.5, CompletedRevenue(rows))
	assert.Zero(t, CompletedRevenue([]model.Treatment{{Status: model.TreatmentCompleted}}))
	assert.Zero(t, CompletedRevenue(nil))
}

func TestListSearchesPatientAndProcedure(t *testing.T) {
	store := memstore.New()
	ahmed := store.Seed(model.TablePatients, remote.Row{"first_name": "Ahmed", "last_name": "Hassan"})[0].ID()
	sara := store.Seed(model.TablePatients, remote.Row{"first_name": "Sara", "last_name": "Yousef"})[0].ID()
	store.Seed(model.TableTreatments,
		remote.Row{"patient_id": ahmed, "procedure_name": "Root Canal", "status": "completed", "cost": 1200, "performed_at": "2026-03-01"},
		remote.Row{"patient_id": sara, "procedure_name": "Cleaning", "status": "completed", "cost": 0, "performed_at": "2026-03-05"},
		remote.Row{"patient_id": sara, "procedure_name": "Crown", "status": "planned", "cost": 900, "performed_at": "2026-03-07"},
	)

	s := NewService(store, service.Options{})
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	all := s.List(Filter{})
	require.Len(t, all.Treatments, 3)
	assert.Equal(t, "Crown", all.Treatments[0].ProcedureName, "newest first")
	assert.Equal(t, 1200.0, all.Revenue)

	assert.Len(t, s.List(Filter{Search: "yousef"}).Treatments, 2)
	assert.Len(t, s.List(Filter{Search: "root"}).Treatments, 1)
	assert.Equal(t, 1200.0, s.List(Filter{Search: "crown"}).Revenue)
}

func TestDefaultsPerformedToday(t *testing.T) {
	s := NewService(memstore.New(), service.Options{Clock: func() time.Time {
		return time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	}})
	d := s.Defaults()
	assert.Equal(t, "2026-03-14", d.PerformedAt)
	assert.Equal(t, model.TreatmentPlanned, d.Status)
	assert.Zero(t, d.Cost)
}
