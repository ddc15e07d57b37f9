package model

import (
	"time"
)

type Appointment struct {
	ID              string       `db:"id" json:"id,omitempty"`
	PatientID       string       `db:"patient_id" json:"patient_id" validate:"required,uuid"`
	Title           string       `db:"title" json:"title" validate:"required"`
	AppointmentDate string       `db:"appointment_date" json:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string       `db:"appointment_time" json:"appointment_time" validate:"required"`
	DurationMins    int          `db:"duration_mins" json:"duration_mins" validate:"oneof=15 30 45 60 90 120"`
	Status          string       `db:"status" json:"status" validate:"oneof=scheduled completed cancelled no-show"`
	Notes           string       `db:"notes" json:"notes"`
	Patient         *PatientName `db:"patients" json:"patients,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

func (a Appointment) RecordID() string { return a.ID }

// NewAppointment returns the create-form defaults.
func NewAppointment() Appointment {
	return Appointment{
		DurationMins: 30,
		Status:       AppointmentScheduled,
	}
}
