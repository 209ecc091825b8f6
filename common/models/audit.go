package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies what kind of mutation an audit entry records.
type AuditAction string

const (
	ActionCreate            AuditAction = "create"
	ActionBulkCreate        AuditAction = "bulk_create"
	ActionUpdate            AuditAction = "update"
	ActionDelete            AuditAction = "delete"
	ActionRevert            AuditAction = "revert"
	ActionSuggestionApprove AuditAction = "suggestion_approve"
	ActionSuggestionReject  AuditAction = "suggestion_reject"
	ActionMarriageCreate    AuditAction = "marriage_create"
	ActionMarriageEnd       AuditAction = "marriage_end"
	ActionGrantModerator    AuditAction = "grant_moderator"
	ActionRevokeModerator   AuditAction = "revoke_moderator"
	ActionBlockSuggest      AuditAction = "block_suggest"
	ActionUnblockSuggest    AuditAction = "unblock_suggest"
	ActionRoleChange        AuditAction = "role_change"
)

// Severity of an audit entry, for operator triage.
const (
	SeverityLow    = 1
	SeverityMedium = 2
	SeverityHigh   = 3
)

// AuditEntry is one immutable line in the forward-only ledger: a single
// accepted mutation with enough snapshot data to reverse it. Entries are
// never deleted; a revert stamps the original and appends its own entry.
// Maps to: audit_entry table.
type AuditEntry struct {
	ID       uuid.UUID   `db:"id" json:"id"`
	ActorID  uuid.UUID   `db:"actor_id" json:"actor_id"`
	Action   AuditAction `db:"action" json:"action"`
	PersonID uuid.UUID   `db:"person_id" json:"person_id"`

	// Full before/after snapshots of the person row, JSON-encoded.
	// OldData is nil for creations.
	OldData []byte `db:"old_data" json:"old_data,omitempty"`
	NewData []byte `db:"new_data" json:"new_data,omitempty"`

	// Names of the fields that differ between the snapshots.
	ChangedFields []string `db:"changed_fields" json:"changed_fields"`

	Description string `db:"description" json:"description"`
	Severity    int    `db:"severity" json:"severity"`

	// Link to the suggestion this entry settled, if any.
	SuggestionID *uuid.UUID `db:"suggestion_id" json:"suggestion_id,omitempty"`

	// Version the guarded mutation produced. A later revert must present
	// this as its expected version, so intervening edits surface as
	// version conflicts instead of silent overwrites.
	ResultVersion *int64 `db:"result_version" json:"result_version,omitempty"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RevertedAt *time.Time `db:"reverted_at" json:"reverted_at,omitempty"`
	RevertedBy *uuid.UUID `db:"reverted_by" json:"reverted_by,omitempty"`
}

// Reverted reports whether this entry has already been reverted.
func (e *AuditEntry) Reverted() bool {
	return e.RevertedAt != nil
}
