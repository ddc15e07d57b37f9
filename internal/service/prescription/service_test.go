package prescription

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citysmiles/dental-admin/internal/model"
	"github.com/citysmiles/dental-admin/internal/remote"
	"github.com/citysmiles/dental-admin/internal/remote/memstore"
	"github.com/citysmiles/dental-admin/internal/service"
	"github.com/citysmiles/dental-admin/pkg/errors"
)

func setup(t *testing.T, compensate bool) (*Service, *memstore.Store, string) {
	t.Helper()
	store := memstore.New()
	patientID := store.Seed(model.TablePatients, remote.Row{"first_name": "Ahmed", "last_name": "Hassan"})[0].ID()
	s := NewService(store, compensate, service.Options{Clock: func() time.Time {
		return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	}})
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(s.Close)
	return s, store, patientID
}

func draft(s *Service, patientID string) model.PrescriptionDraft {
	d := s.Defaults()
	d.PatientID = patientID
	d.Items = []model.PrescriptionItem{
		{MedicineName: "Amoxicillin", Dosage: "500mg"},
		{MedicineName: "Ibuprofen", Dosage: "400mg"},
	}
	return d
}

func TestCreateListsPrescriptionWithItems(t *testing.T) {
	s, _, patientID := setup(t, false)

	require.NoError(t, s.Create(context.Background(), draft(s, patientID)))

	require.Eventually(t, func() bool { return s.List().ItemCount == 2 }, time.Second, time.Millisecond)
	listing := s.List()
	require.Len(t, listing.Prescriptions, 1)
	rx := listing.Prescriptions[0]
	assert.Equal(t, "Ahmed Hassan", rx.Patient.FullName())
	assert.Equal(t, "2026-03-14", rx.PrescribedDate)
	require.Len(t, rx.Items, 2)
	assert.Equal(t, "Amoxicillin", rx.Items[0].MedicineName)
}

func TestFailedItemsLeaveEmptyPrescription(t *testing.T) {
	s, store, patientID := setup(t, false)
	store.FailNext(memstore.OpInsert, model.TablePrescriptionItems, stderrors.New("insert or update on table violates foreign key constraint"))

	err := s.Create(context.Background(), draft(s, patientID))
	assert.True(t, errors.HasCode(err, errors.ErrPartialWrite))

	require.Eventually(t, func() bool { return s.List().Total == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, s.List().Prescriptions[0].Items)
	assert.NotNil(t, s.List().Prescriptions[0].Items)
}

func TestCompensationLeavesNothing(t *testing.T) {
	s, store, patientID := setup(t, true)
	store.FailNext(memstore.OpInsert, model.TablePrescriptionItems, stderrors.New("deadlock detected"))

	err := s.Create(context.Background(), draft(s, patientID))
	assert.True(t, errors.HasCode(err, errors.ErrPartialWrite))
	assert.EqualError(t, err, "prescription discarded: deadlock detected")
	assert.Empty(t, store.Rows(model.TablePrescriptions))
	require.Eventually(t, func() bool { return s.List().Total == 0 }, time.Second, time.Millisecond)
}

func TestDeleteCascadesToItems(t *testing.T) {
	ctx := context.Background()
	s, store, patientID := setup(t, false)
	require.NoError(t, s.Create(ctx, draft(s, patientID)))
	require.Eventually(t, func() bool { return s.List().Total == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Delete(ctx, s.List().Prescriptions[0].ID))
	assert.Empty(t, store.Rows(model.TablePrescriptionItems))
	require.Eventually(t, func() bool { return s.List().Total == 0 }, time.Second, time.Millisecond)
}

func TestFetchWithItemsSkipsItemReadWhenEmpty(t *testing.T) {
	store := memstore.New()
	rows, err := FetchWithItems(context.Background(), store, Spec)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, store.Reads(model.TablePrescriptionItems))
}

func TestFetchWithItemsFailsWhenItemsFail(t *testing.T) {
	store := memstore.New()
	patientID := store.Seed(model.TablePatients, remote.Row{"first_name": "Ahmed"})[0].ID()
	store.Seed(model.TablePrescriptions, remote.Row{"patient_id": patientID, "prescribed_date": "2026-03-14"})
	store.FailNext(memstore.OpSelect, model.TablePrescriptionItems, stderrors.New("timeout"))

	_, err := FetchWithItems(context.Background(), store, Spec)
	assert.Error(t, err)
}
