package models

import (
	"time"

	"github.com/google/uuid"
)

// BranchModeratorGrant gives an actor full edit rights over a branch root
// and every descendant while active. The registry is append-only: revoking
// flips Active off, it never deletes the row.
// Maps to: branch_moderator table.
type BranchModeratorGrant struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ActorID   uuid.UUID  `db:"actor_id" json:"actor_id"`
	RootID    uuid.UUID  `db:"root_id" json:"root_id"`
	Active    bool       `db:"active" json:"active"`
	GrantedBy uuid.UUID  `db:"granted_by" json:"granted_by"`
	GrantedAt time.Time  `db:"granted_at" json:"granted_at"`
	RevokedBy *uuid.UUID `db:"revoked_by" json:"revoked_by,omitempty"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// SuggestionBlock downgrades an otherwise-suggest permission level to
// blocked. Blocking restricts unrelated strangers only: every
// relation-based full rule is checked first.
// Maps to: suggestion_block table.
type SuggestionBlock struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PersonID  uuid.UUID `db:"person_id" json:"person_id"`
	BlockedBy uuid.UUID `db:"blocked_by" json:"blocked_by"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
