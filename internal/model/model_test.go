package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInventoryLowStockBoundary(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		threshold int
		want      bool
	}{
		{"below", 3, 10, true},
		{"equal", 10, 10, true},
		{"above", 11, 10, false},
		{"empty with zero threshold", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := InventoryItem{Quantity: tt.quantity, LowStockThreshold: tt.threshold}
			assert.Equal(t, tt.want, item.LowStock())
		})
	}
}

func TestInventoryValue(t *testing.T) {
	item := InventoryItem{Quantity: 4, CostPerUnit: 2.5}
	assert.Equal(t, 10.0, item.Value())
}

func TestDefaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	appt := NewAppointment()
	assert.Equal(t, 30, appt.DurationMins)
	assert.Equal(t, AppointmentScheduled, appt.Status)

	tx := NewTreatment(now)
	assert.Equal(t, TreatmentPlanned, tx.Status)
	assert.Equal(t, "2026-03-14", tx.PerformedAt)
	assert.Zero(t, tx.Cost)

	inv := NewInventoryItem()
	assert.Equal(t, "pcs", inv.Unit)
	assert.Equal(t, 10, inv.LowStockThreshold)

	rx := NewPrescriptionDraft(now)
	assert.Len(t, rx.Items, 1)
	assert.Equal(t, "2026-03-14", rx.PrescribedDate)
}

func TestPatientNameFullName(t *testing.T) {
	var missing *PatientName
	assert.Equal(t, "—", missing.FullName())
	assert.Equal(t, "Ahmed Hassan", (&PatientName{FirstName: "Ahmed", LastName: "Hassan"}).FullName())
}
