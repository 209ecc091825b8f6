package models

import (
	"time"

	"github.com/google/uuid"
)

// Gender of a person. Father references must point at a male node and
// mother references at a female one; enforced at write time.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// LifecycleStatus tracks whether a person is living.
type LifecycleStatus string

const (
	StatusAlive    LifecycleStatus = "alive"
	StatusDeceased LifecycleStatus = "deceased"
)

// Role is the flat platform role. Graph-relative access is layered on top
// of this by the permission evaluator.
type Role string

const (
	RoleNone       Role = "none"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role carries global edit rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Person is a node in the family graph.
// Maps to: person table. Rows are never hard-deleted; DeletedAt marks
// soft deletion and removes the row from traversal and lookups.
type Person struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Kunya      *string   `db:"kunya" json:"kunya,omitempty"`
	Gender     Gender    `db:"gender" json:"gender"`
	Generation int       `db:"generation" json:"generation"`

	// Parent pointers. Nullable; tree roots have neither.
	FatherID *uuid.UUID `db:"father_id" json:"father_id,omitempty"`
	MotherID *uuid.UUID `db:"mother_id" json:"mother_id,omitempty"`

	// Position among siblings of the same father, assigned under the
	// per-parent advisory lock during bulk creation.
	SiblingOrder int `db:"sibling_order" json:"sibling_order"`

	Status     LifecycleStatus `db:"status" json:"status"`
	Bio        *string         `db:"bio" json:"bio,omitempty"`
	BirthDate  *string         `db:"birth_date" json:"birth_date,omitempty"`
	DeathDate  *string         `db:"death_date" json:"death_date,omitempty"`
	BirthPlace *string         `db:"birth_place" json:"birth_place,omitempty"`
	Residence  *string         `db:"residence" json:"residence,omitempty"`
	Occupation *string         `db:"occupation" json:"occupation,omitempty"`
	Phone      *string         `db:"phone" json:"phone,omitempty"`
	Email      *string         `db:"email" json:"email,omitempty"`
	PhotoURL   *string         `db:"photo_url" json:"photo_url,omitempty"`

	Role Role `db:"role" json:"role"`

	// Optimistic concurrency token. A mutation commits only if the
	// caller's expected version matches; the commit increments it by 1.
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	UpdatedBy *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// PersonRef is the structure-only projection used by graph traversal and
// bulk rendering. One projection, shared by every traversal query.
type PersonRef struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FatherID     *uuid.UUID `db:"father_id" json:"father_id,omitempty"`
	MotherID     *uuid.UUID `db:"mother_id" json:"mother_id,omitempty"`
	Gender       Gender     `db:"gender" json:"gender"`
	Generation   int        `db:"generation" json:"generation"`
	SiblingOrder int        `db:"sibling_order" json:"sibling_order"`
	Deleted      bool       `db:"deleted" json:"deleted"`
}
