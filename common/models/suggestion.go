package models

import (
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus is the suggestion lifecycle. pending is the only
// non-terminal state; each transition out of it happens exactly once.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionApproved  SuggestionStatus = "approved"
	SuggestionRejected  SuggestionStatus = "rejected"
	SuggestionCancelled SuggestionStatus = "cancelled"
)

// EditSuggestion is a proposed single-field change awaiting review, for
// actors whose permission level is suggest rather than full.
// Maps to: edit_suggestion table.
type EditSuggestion struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PersonID   uuid.UUID `db:"person_id" json:"person_id"`
	ProposedBy uuid.UUID `db:"proposed_by" json:"proposed_by"`

	// Field name from the editable-field allow-list, with the value seen
	// at proposal time and the proposed replacement.
	FieldName string  `db:"field_name" json:"field_name"`
	OldValue  *string `db:"old_value" json:"old_value,omitempty"`
	NewValue  *string `db:"new_value" json:"new_value,omitempty"`
	Reason    string  `db:"reason" json:"reason"`

	Status       SuggestionStatus `db:"status" json:"status"`
	ReviewedBy   *uuid.UUID       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectReason *string          `db:"reject_reason" json:"reject_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
