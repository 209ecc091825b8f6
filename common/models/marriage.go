package models

import (
	"time"

	"github.com/google/uuid"
)

// MarriageStatus is two-state: a marriage is either the partner's current
// one or a past one. At most one current marriage per partner, enforced
// inside the insert transaction.
type MarriageStatus string

const (
	MarriageCurrent MarriageStatus = "current"
	MarriagePast    MarriageStatus = "past"
)

// Marriage is an edge between two persons.
// Maps to: marriage table.
type Marriage struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	HusbandID uuid.UUID      `db:"husband_id" json:"husband_id"`
	WifeID    uuid.UUID      `db:"wife_id" json:"wife_id"`
	Status    MarriageStatus `db:"status" json:"status"`

	// Ordering index for partners with multiple marriages.
	OrderIndex int `db:"order_index" json:"order_index"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
