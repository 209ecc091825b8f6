package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/db"
	"github.com/qefaraki/lineage/common/models"
)

// GrantRepository handles branch moderator grants and suggestion blocks
type GrantRepository struct {
	db *db.DB
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(db *db.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// CreateGrant inserts a branch moderator grant and its audit entry
func (r *GrantRepository) CreateGrant(ctx context.Context, g *models.BranchModeratorGrant, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		g.Active = true
		g.GrantedAt = time.Now()

		_, err := tx.Exec(ctx, `
			INSERT INTO branch_moderator (id, actor_id, root_id, active, granted_by, granted_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, g.ID, g.ActorID, g.RootID, g.Active, g.GrantedBy, g.GrantedAt)
		if err != nil {
			return fmt.Errorf("insert grant: %w", err)
		}

		entry.PersonID = g.RootID
		return insertAuditEntry(ctx, tx, entry)
	})
}

// RevokeGrant deactivates a grant. The registry is append-only: the row
// stays, stamped with who revoked it and when.
func (r *GrantRepository) RevokeGrant(ctx context.Context, grantID, revokedBy uuid.UUID, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var rootID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE branch_moderator
			SET active = false, revoked_by = $2, revoked_at = NOW()
			WHERE id = $1 AND active = true
			RETURNING root_id
		`, grantID, revokedBy).Scan(&rootID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("revoke grant: %w", err)
		}

		entry.PersonID = rootID
		return insertAuditEntry(ctx, tx, entry)
	})
}

// ActiveRoots returns the branch roots the actor currently moderates
func (r *GrantRepository) ActiveRoots(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT root_id FROM branch_moderator
		WHERE actor_id = $1 AND active = true
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list active grants: %w", err)
	}
	defer rows.Close()

	var roots []uuid.UUID
	for rows.Next() {
		var root uuid.UUID
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("scan grant root: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// CreateBlock puts a person on the suggestion block list
func (r *GrantRepository) CreateBlock(ctx context.Context, b *models.SuggestionBlock, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.CreatedAt = time.Now()

		_, err := tx.Exec(ctx, `
			INSERT INTO suggestion_block (id, person_id, blocked_by, reason, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (person_id) DO NOTHING
		`, b.ID, b.PersonID, b.BlockedBy, b.Reason, b.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert block: %w", err)
		}

		entry.PersonID = b.PersonID
		return insertAuditEntry(ctx, tx, entry)
	})
}

// DeleteBlock removes a person from the suggestion block list
func (r *GrantRepository) DeleteBlock(ctx context.Context, personID uuid.UUID, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM suggestion_block WHERE person_id = $1
		`, personID)
		if err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}

		entry.PersonID = personID
		return insertAuditEntry(ctx, tx, entry)
	})
}

// IsBlocked reports whether the person is on the suggestion block list
func (r *GrantRepository) IsBlocked(ctx context.Context, personID uuid.UUID) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM suggestion_block WHERE person_id = $1)
	`, personID).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return blocked, nil
}
