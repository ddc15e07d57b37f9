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

func seedPatient(s *memstore.Store) string {
	return s.Seed(model.TablePatients, remote.Row{"first_name": "Ahmed", "last_name": "Hassan"})[0].ID()
}

func TestMissingRequiredFieldNeverWrites(t *testing.T) {
	store := memstore.New()
	patientID := seedPatient(store)
	v := NewValidator()

	tests := []struct {
		name  string
		table string
		form  func() (submit func(context.Context) error, isOpen func() bool)
		want  string
	}{
		{
			name:  "patient without last name",
			table: model.TablePatients,
			form: func() (func(context.Context) error, func() bool) {
				f := New[model.Patient](model.TablePatients, store, v, nil)
				f.Open(model.Patient{FirstName: "Ahmed"})
				return f.Submit, f.IsOpen
			},
			want: "last_name is required",
		},
		{
			name:  "appointment without time",
			table: model.TableAppointments,
			form: func() (func(context.Context) error, func() bool) {
				f := New[model.Appointment](model.TableAppointments, store, v, nil)
				d := model.NewAppointment()
				d.PatientID, d.Title, d.AppointmentDate = patientID, "Checkup", "2026-03-14"
				f.Open(d)
				return f.Submit, f.IsOpen
			},
			want: "appointment_time is required",
		},
		{
			name:  "treatment without patient",
			table: model.TableTreatments,
			form: func() (func(context.Context) error, func() bool) {
				f := New[model.Treatment](model.TableTreatments, store, v, nil)
				d := model.NewTreatment(time.Now())
				d.ProcedureName = "Crown"
				f.Open(d)
				return f.Submit, f.IsOpen
			},
			want: "patient_id is required",
		},
		{
			name:  "inventory without name",
			table: model.TableInventory,
			form: func() (func(context.Context) error, func() bool) {
				f := New[model.InventoryItem](model.TableInventory, store, v, nil)
				f.Open(model.NewInventoryItem())
				return f.Submit, f.IsOpen
			},
			want: "item_name is required",
		},
		{
			name:  "prescription item without dosage",
			table: model.TablePrescriptions,
			form: func() (func(context.Context) error, func() bool) {
				f := NewPrescriptionForm(store, v, nil)
				d := model.NewPrescriptionDraft(time.Now())
				d.PatientID = patientID
				d.Items = []model.PrescriptionItem{{MedicineName: "Amoxicillin", Dosage: "500mg"}, {MedicineName: "Ibuprofen"}}
				f.Open(d)
				return f.Submit, f.IsOpen
			},
			want: "items[1].dosage is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submit, isOpen := tt.form()
			err := submit(context.Background())

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrValidation))
			assert.EqualError(t, err, tt.want)
			assert.True(t, isOpen())
			assert.Zero(t, store.Writes(tt.table))
		})
	}
}

func TestAppointmentMissingTimeKeepsDraft(t *testing.T) {
	store := memstore.New()
	f := New[model.Appointment](model.TableAppointments, store, NewValidator(), nil)
	d := model.NewAppointment()
	d.PatientID, d.Title, d.AppointmentDate = seedPatient(store), "Cleaning", "2026-03-14"
	f.Open(d)

	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, d, f.Draft())
	assert.Zero(t, store.Writes(model.TableAppointments))
}

func TestCreateWritesOnceRefreshesAndCloses(t *testing.T) {
	store := memstore.New()
	var refreshed int
	f := New[model.Patient](model.TablePatients, store, NewValidator(), func(context.Context) { refreshed++ })
	f.Open(model.Patient{FirstName: "Ahmed", LastName: "Hassan", Email: "ahmed@example.com"})

	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, 1, store.Writes(model.TablePatients))
	assert.Equal(t, 1, refreshed)
	assert.False(t, f.IsOpen())
	rows := store.Rows(model.TablePatients)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hassan", rows[0]["last_name"])
	assert.Nil(t, rows[0]["date_of_birth"])
}

func TestEditUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := store.Seed(model.TableInventory, remote.Row{"item_name": "Gloves", "quantity": 50, "low_stock_threshold": 10, "unit": "box"})[0]

	var existing []model.InventoryItem
	require.NoError(t, remote.Decode([]remote.Row{row}, &existing))

	f := New[model.InventoryItem](model.TableInventory, store, NewValidator(), nil)
	f.Open(existing[0])
	require.NoError(t, f.Edit(func(d *model.InventoryItem) { d.Quantity = 8 }))
	require.NoError(t, f.Submit(ctx))

	rows := store.Rows(model.TableInventory)
	require.Len(t, rows, 1)
	assert.Equal(t, float64(8), rows[0]["quantity"])
	assert.Equal(t, row.ID(), rows[0]["id"])
	assert.Equal(t, 1, store.Writes(model.TableInventory))
}

func TestRemoteFailureIsVerbatimAndKeepsFormOpen(t *testing.T) {
	store := memstore.New()
	store.FailNext(memstore.OpInsert, model.TablePatients, stderrors.New(`new row violates check constraint "patients_email_check"`))

	var refreshed int
	f := New[model.Patient](model.TablePatients, store, NewValidator(), func(context.Context) { refreshed++ })
	draft := model.Patient{FirstName: "Ahmed", LastName: "Hassan"}
	f.Open(draft)

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRemote))
	assert.EqualError(t, err, `new row violates check constraint "patients_email_check"`)
	assert.True(t, f.IsOpen())
	assert.Equal(t, draft, f.Draft())
	assert.Zero(t, refreshed)

	// correcting nothing and retrying succeeds once the remote recovers
	require.NoError(t, f.Submit(context.Background()))
	assert.Len(t, store.Rows(model.TablePatients), 1)
}

func TestVocabularyRules(t *testing.T) {
	v := NewValidator()
	patientID := "5b3f0f0e-1c1a-4a8e-9a57-1f2b0c7b9e01"

	tx := model.NewTreatment(time.Now())
	tx.PatientID = patientID
	tx.ProcedureName = "Filling (Composite)"
	assert.NoError(t, v.Validate(tx))

	tx.ProcedureName = "Haircut"
	assert.EqualError(t, v.Validate(tx), "procedure_name is not a known procedure")

	tx.ProcedureName = "Crown"
	tx.Cost = -1
	assert.EqualError(t, v.Validate(tx), "cost must be at least 0")

	item := model.NewInventoryItem()
	item.ItemName = "Gloves"
	item.Unit = "crate"
	assert.EqualError(t, v.Validate(item), "unit is not a known unit")

	appt := model.NewAppointment()
	appt.PatientID, appt.Title, appt.AppointmentDate, appt.AppointmentTime = patientID, "Checkup", "2026-03-14", "09:30"
	appt.DurationMins = 25
	assert.EqualError(t, v.Validate(appt), "duration_mins must be one of [15 30 45 60 90 120]")
}

func TestSubmitClosedForm(t *testing.T) {
	f := New[model.Patient](model.TablePatients, memstore.New(), NewValidator(), nil)
	assert.True(t, errors.HasCode(f.Submit(context.Background()), errors.ErrBadRequest))
	assert.Error(t, f.Edit(func(*model.Patient) {}))
}
