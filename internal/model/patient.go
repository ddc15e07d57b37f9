package model

import (
	"strings"
	"time"
)

type Patient struct {
	ID           string    `db:"id" json:"id,omitempty"`
	FirstName    string    `db:"first_name" json:"first_name" validate:"required"`
	LastName     string    `db:"last_name" json:"last_name" validate:"required"`
	DateOfBirth  string    `db:"date_of_birth" json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender       string    `db:"gender" json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email" validate:"omitempty,email"`
	Address      string    `db:"address" json:"address"`
	BloodGroup   string    `db:"blood_group" json:"blood_group" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies    string    `db:"allergies" json:"allergies"`
	MedicalNotes string    `db:"medical_notes" json:"medical_notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (p Patient) RecordID() string { return p.ID }

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PatientName is the patient projection joined onto dependent rows.
type PatientName struct {
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// FullName renders a dash for a missing join, like the list views do.
func (n *PatientName) FullName() string {
	if n == nil {
		return "—"
	}
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}

// PatientRef feeds patient selection inputs.
type PatientRef struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

func (r PatientRef) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// PatientNameColumns is the projection used for joins and lookups.
var PatientNameColumns = []string{"first_name", "last_name"}
