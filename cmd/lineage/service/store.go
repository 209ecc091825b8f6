package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/repository"
)

// Store interfaces consumed by the services. The pgx repositories under
// common/repository satisfy them in production; tests use in-memory
// fakes with the same transactional semantics.

// PersonStore reads and writes person rows
type PersonStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error)
	GetRef(ctx context.Context, id uuid.UUID) (*models.PersonRef, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.PersonRef, error)
	ListStructure(ctx context.Context) ([]*models.PersonRef, error)
	Create(ctx context.Context, p *models.Person, entry *models.AuditEntry) error
	CreateChildren(ctx context.Context, parentID uuid.UUID, children []*models.Person, entry *models.AuditEntry) error
	SetRole(ctx context.Context, id uuid.UUID, role models.Role, entry *models.AuditEntry) error
	SoftDelete(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error
}

// MutationStore executes guarded compare-and-swap mutations
type MutationStore interface {
	ApplyGuarded(ctx context.Context, req *repository.ApplyRequest) (*models.Person, error)
}

// MarriageStore reads and writes marriage edges
type MarriageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Marriage, error)
	CurrentBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	Create(ctx context.Context, m *models.Marriage, entry *models.AuditEntry) error
	End(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error
}

// GrantStore manages branch moderator grants and suggestion blocks
type GrantStore interface {
	CreateGrant(ctx context.Context, g *models.BranchModeratorGrant, entry *models.AuditEntry) error
	RevokeGrant(ctx context.Context, grantID, revokedBy uuid.UUID, entry *models.AuditEntry) error
	ActiveRoots(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error)
	CreateBlock(ctx context.Context, b *models.SuggestionBlock, entry *models.AuditEntry) error
	DeleteBlock(ctx context.Context, personID uuid.UUID, entry *models.AuditEntry) error
	IsBlocked(ctx context.Context, personID uuid.UUID) (bool, error)
}

// SuggestionStore manages edit suggestions
type SuggestionStore interface {
	Create(ctx context.Context, s *models.EditSuggestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EditSuggestion, error)
	List(ctx context.Context, status models.SuggestionStatus, personID *uuid.UUID, limit int) ([]*models.EditSuggestion, error)
	Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, entry *models.AuditEntry) error
	Cancel(ctx context.Context, id uuid.UUID) error
}

// AuditStore reads the ledger and appends standalone entries
type AuditStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error)
	ListByPerson(ctx context.Context, personID uuid.UUID, limit int) ([]*models.AuditEntry, error)
	Insert(ctx context.Context, entry *models.AuditEntry) error
}
