package form

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
	"github.com/citysmiles/dental-admin/pkg/errors"
)

func twoItemDraft(patientID string) model.PrescriptionDraft {
	d := model.NewPrescriptionDraft(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	d.PatientID = patientID
	d.Items = []model.PrescriptionItem{
		{MedicineName: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		{MedicineName: "Ibuprofen", Dosage: "400mg", Instructions: "after meals"},
	}
	return d
}

func itemsOf(store *memstore.Store, prescriptionID string) []remote.Row {
	var out []remote.Row
	for _, r := range store.Rows(model.TablePrescriptionItems) {
		if r["prescription_id"] == prescriptionID {
			out = append(out, r)
		}
	}
	return out
}

func TestPrescriptionWritesHeaderThenItems(t *testing.T) {
	store := memstore.New()
	var refreshed int
	f := NewPrescriptionForm(store, NewValidator(), func(context.Context) { refreshed++ })
	f.Open(twoItemDraft(seedPatient(store)))

	require.NoError(t, f.Submit(context.Background()))

	rx := store.Rows(model.TablePrescriptions)
	require.Len(t, rx, 1)
	assert.Equal(t, "2026-03-14", rx[0]["prescribed_date"])
	items := itemsOf(store, rx[0].ID())
	require.Len(t, items, 2)
	assert.Equal(t, 1, store.Writes(model.TablePrescriptionItems), "items go in one batch")
	assert.Equal(t, 1, refreshed)
	assert.False(t, f.IsOpen())
}

func TestPrescriptionHeaderFailureWritesNoItems(t *testing.T) {
	store := memstore.New()
	store.FailNext(memstore.OpInsert, model.TablePrescriptions, stderrors.New("permission denied for table prescriptions"))
	f := NewPrescriptionForm(store, NewValidator(), nil)
	f.Open(twoItemDraft(seedPatient(store)))

	err := f.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrRemote))
	assert.EqualError(t, err, "permission denied for table prescriptions")
	assert.Zero(t, store.Writes(model.TablePrescriptionItems))
	assert.Empty(t, store.Rows(model.TablePrescriptions))
	assert.True(t, f.IsOpen())
}

func TestPrescriptionItemFailureLeavesOrphanHeader(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	store.FailNext(memstore.OpInsert, model.TablePrescriptionItems, stderrors.New("value too long for type character varying(50)"))
	f := NewPrescriptionForm(store, NewValidator(), nil)
	draft := twoItemDraft(seedPatient(store))
	f.Open(draft)

	err := f.Submit(ctx)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPartialWrite))
	assert.EqualError(t, err, "prescription saved without items: value too long for type character varying(50)")
	assert.True(t, f.IsOpen())
	assert.Equal(t, draft, f.Draft())

	// observable on the next read: a prescription with zero items
	res, err := store.Select(ctx, model.TablePrescriptions, remote.Query{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Empty(t, itemsOf(store, res.Rows[0].ID()))
}

func TestPrescriptionCompensationRemovesHeader(t *testing.T) {
	store := memstore.New()
	store.FailNext(memstore.OpInsert, model.TablePrescriptionItems, stderrors.New("deadlock detected"))
	f := NewPrescriptionForm(store, NewValidator(), nil, WithCompensation(true))
	f.Open(twoItemDraft(seedPatient(store)))

	err := f.Submit(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrPartialWrite))
	assert.EqualError(t, err, "prescription discarded: deadlock detected")
	assert.Empty(t, store.Rows(model.TablePrescriptions))
	assert.True(t, f.IsOpen())
}

func TestPrescriptionItemEditing(t *testing.T) {
	f := NewPrescriptionForm(memstore.New(), NewValidator(), nil)
	f.Open(model.NewPrescriptionDraft(time.Now()))

	assert.Error(t, f.RemoveItem(0), "the only item stays")
	require.NoError(t, f.AddItem())
	require.NoError(t, f.Edit(func(d *model.PrescriptionDraft) { d.Items[1].MedicineName = "Ibuprofen" }))
	require.NoError(t, f.RemoveItem(0))

	d := f.Draft()
	require.Len(t, d.Items, 1)
	assert.Equal(t, "Ibuprofen", d.Items[0].MedicineName)
	assert.Error(t, f.RemoveItem(3))
}

func TestPrescriptionWithoutPatient(t *testing.T) {
	store := memstore.New()
	f := NewPrescriptionForm(store, NewValidator(), nil)
	d := twoItemDraft("")
	f.Open(d)

	assert.EqualError(t, f.Submit(context.Background()), "patient_id is required")
	assert.Zero(t, store.Writes(model.TablePrescriptions))
}
