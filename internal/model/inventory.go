package model

import (
	"time"
)

type InventoryItem struct {
	ID                string    `db:"id" json:"id,omitempty"`
	ItemName          string    `db:"item_name" json:"item_name" validate:"required"`
	Category          string    `db:"category" json:"category" validate:"omitempty,category"`
	Quantity          int       `db:"quantity" json:"quantity" validate:"gte=0"`
	Unit              string    `db:"unit" json:"unit" validate:"omitempty,unit"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold" validate:"gte=0"`
	CostPerUnit       float64   `db:"cost_per_unit" json:"cost_per_unit" validate:"gte=0"`
	Supplier          string    `db:"supplier" json:"supplier"`
	Notes             string    `db:"notes" json:"notes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

func (i InventoryItem) RecordID() string { return i.ID }

// LowStock is true once quantity has fallen to or below the threshold.
func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.LowStockThreshold
}

// Value is quantity times unit cost.
func (i InventoryItem) Value() float64 {
	return float64(i.Quantity) * i.CostPerUnit
}

// NewInventoryItem returns the create-form defaults.
func NewInventoryItem() InventoryItem {
	return InventoryItem{
		Unit:              "pcs",
		LowStockThreshold: 10,
	}
}
