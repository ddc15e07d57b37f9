package model

import (
	"time"
)

type Treatment struct {
	ID            string       `db:"id" json:"id,omitempty"`
	PatientID     string       `db:"patient_id" json:"patient_id" validate:"required,uuid"`
	ProcedureName string       `db:"procedure_name" json:"procedure_name" validate:"required,procedure"`
	ToothNumber   string       `db:"tooth_number" json:"tooth_number"`
	Description   string       `db:"description" json:"description"`
	Status        string       `db:"status" json:"status" validate:"oneof=planned in-progress completed"`
	Cost          float64      `db:"cost" json:"cost" validate:"gte=0"`
	PerformedAt   string       `db:"performed_at" json:"performed_at" validate:"omitempty,datetime=2006-01-02"`
	VisitNotes    string       `db:"visit_notes" json:"visit_notes"`
	Patient       *PatientName `db:"patients" json:"patients,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

func (t Treatment) RecordID() string { return t.ID }

// NewTreatment returns the create-form defaults, performed today.
func NewTreatment(now time.Time) Treatment {
	return Treatment{
		Status:      TreatmentPlanned,
		PerformedAt: now.Format(DateLayout),
	}
}
