package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citysmiles/dental-admin/internal/model"
)

func TestDecodeJoinedRows(t *testing.T) {
	rows := []Row{
		{
			"id":               "a1",
			"patient_id":       "p1",
			"title":            "Checkup",
			"appointment_date": "2026-03-14",
			"appointment_time": "09:30:00",
			"duration_mins":    float64(45),
			"status":           "scheduled",
			"notes":            nil,
			"created_at":       "2026-03-01T08:00:00.123456+00:00",
			"patients":         map[string]any{"first_name": "Ahmed", "last_name": "Hassan"},
		},
		{
			"id":       "a2",
			"title":    "Orphan",
			"patients": nil,
		},
	}

	var out []model.Appointment
	require.NoError(t, Decode(rows, &out))
	require.Len(t, out, 2)

	assert.Equal(t, 45, out[0].DurationMins)
	assert.Equal(t, "Ahmed Hassan", out[0].Patient.FullName())
	assert.Equal(t, 2026, out[0].CreatedAt.Year())
	assert.Nil(t, out[1].Patient)
	assert.Equal(t, "—", out[1].Patient.FullName())
}

func TestDecodeNilRows(t *testing.T) {
	var out []model.Patient
	require.NoError(t, Decode(nil, &out))
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEncodeStripsGeneratedFields(t *testing.T) {
	appt := model.Appointment{
		ID:              "a1",
		PatientID:       "p1",
		Title:           "Checkup",
		AppointmentDate: "2026-03-14",
		AppointmentTime: "09:30",
		DurationMins:    30,
		Status:          model.AppointmentScheduled,
		Patient:         &model.PatientName{FirstName: "Ahmed"},
		CreatedAt:       time.Now(),
	}

	row, err := Encode(appt)
	require.NoError(t, err)

	assert.NotContains(t, row, "id")
	assert.NotContains(t, row, "created_at")
	assert.NotContains(t, row, "updated_at")
	assert.NotContains(t, row, "patients")
	assert.Equal(t, "Checkup", row["title"])
	assert.Equal(t, 30, row["duration_mins"])
}

func TestEncodeEmptyOptionalDateIsNull(t *testing.T) {
	row, err := Encode(model.Patient{FirstName: "Ahmed", LastName: "Hassan"})
	require.NoError(t, err)

	v, ok := row["date_of_birth"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "", row["phone"])
}

func TestCheckQuery(t *testing.T) {
	assert.NoError(t, CheckQuery(model.TableAppointments, Query{
		Joins:   []Join{{Table: model.TablePatients, ForeignKey: "patient_id", Columns: model.PatientNameColumns}},
		Filters: []Filter{Eq("status", "scheduled")},
		Order:   &Order{Column: "appointment_date"},
	}))

	assert.Error(t, CheckQuery("users", Query{}))
	assert.Error(t, CheckQuery(model.TablePatients, Query{Columns: []string{"id; drop table patients"}}))
	assert.Error(t, CheckQuery(model.TablePatients, Query{Order: &Order{Column: "Name"}}))
	assert.Error(t, CheckQuery(model.TablePatients, Query{Limit: -1}))
}
