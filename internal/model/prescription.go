package model

import (
	"time"
)

type Prescription struct {
	ID             string             `db:"id" json:"id"`
	PatientID      string             `db:"patient_id" json:"patient_id"`
	PrescribedDate string             `db:"prescribed_date" json:"prescribed_date"`
	Notes          string             `db:"notes" json:"notes"`
	Patient        *PatientName       `db:"patients" json:"patients,omitempty"`
	Items          []PrescriptionItem `db:"-" json:"items"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

type PrescriptionItem struct {
	ID             string    `db:"id" json:"id,omitempty"`
	PrescriptionID string    `db:"prescription_id" json:"prescription_id,omitempty"`
	MedicineName   string    `db:"medicine_name" json:"medicine_name" validate:"required"`
	Dosage         string    `db:"dosage" json:"dosage" validate:"required"`
	Frequency      string    `db:"frequency" json:"frequency"`
	Duration       string    `db:"duration" json:"duration"`
	Instructions   string    `db:"instructions" json:"instructions"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PrescriptionDraft is a prescription header plus its staged items. It is
// written in two steps: the header first, then the items tagged with the
// generated header id.
type PrescriptionDraft struct {
	PatientID      string             `json:"patient_id" validate:"required,uuid"`
	PrescribedDate string             `json:"prescribed_date" validate:"omitempty,datetime=2006-01-02"`
	Notes          string             `json:"notes"`
	Items          []PrescriptionItem `json:"items" validate:"min=1,dive"`
}

// NewPrescriptionDraft starts with one blank item dated today.
func NewPrescriptionDraft(now time.Time) PrescriptionDraft {
	return PrescriptionDraft{
		PrescribedDate: now.Format(DateLayout),
		Items:          []PrescriptionItem{{}},
	}
}

// Header is the prescription row written by the first step.
func (d PrescriptionDraft) Header() Prescription {
	return Prescription{
		PatientID:      d.PatientID,
		PrescribedDate: d.PrescribedDate,
		Notes:          d.Notes,
	}
}
