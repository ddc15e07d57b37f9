package model

import (
	"time"
)

// ChangeType is the kind of row change a table emits.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeResync is emitted when notifications may have been lost.
	ChangeResync ChangeType = "RESYNC"
)

// ChangeEvent says that a row of Table changed. Consumers treat it as a
// signal only; they re-read the table instead of patching from it.
type ChangeEvent struct {
	Table string     `json:"table"`
	Type  ChangeType `json:"type"`
	ID    string     `json:"id,omitempty"`
	At    time.Time  `json:"at"`
}
