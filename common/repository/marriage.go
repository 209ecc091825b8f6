package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/db"
	"github.com/qefaraki/lineage/common/models"
)

// MarriageRepository handles database operations for marriages
type MarriageRepository struct {
	db *db.DB
}

// NewMarriageRepository creates a new marriage repository
func NewMarriageRepository(db *db.DB) *MarriageRepository {
	return &MarriageRepository{db: db}
}

// GetByID retrieves a marriage, excluding soft-deleted rows
func (r *MarriageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Marriage, error) {
	query := `
		SELECT id, husband_id, wife_id, status, order_index, created_at, deleted_at
		FROM marriage
		WHERE id = $1 AND deleted_at IS NULL
	`

	m := &models.Marriage{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.HusbandID, &m.WifeID, &m.Status, &m.OrderIndex,
		&m.CreatedAt, &m.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get marriage: %w", err)
	}
	return m, nil
}

// CurrentBetween reports whether a current marriage exists between the
// two persons, in either spouse order
func (r *MarriageRepository) CurrentBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM marriage
			WHERE status = 'current' AND deleted_at IS NULL
			  AND ((husband_id = $1 AND wife_id = $2)
			    OR (husband_id = $2 AND wife_id = $1))
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("check current marriage: %w", err)
	}
	return exists, nil
}

// Create inserts a marriage, enforcing at most one current marriage per
// partner, and appends the audit entry. The partial unique indexes on
// husband_id/wife_id back the application-level check, so a concurrent
// insert that slips past the check still fails at commit.
func (r *MarriageRepository) Create(ctx context.Context, m *models.Marriage, entry *models.AuditEntry) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if m.Status == models.MarriageCurrent {
			var busy bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT 1 FROM marriage
					WHERE status = 'current' AND deleted_at IS NULL
					  AND (husband_id = $1 OR wife_id = $1
					    OR husband_id = $2 OR wife_id = $2)
				)
			`, m.HusbandID, m.WifeID).Scan(&busy)
			if err != nil {
				return fmt.Errorf("check existing current marriage: %w", err)
			}
			if busy {
				return fmt.Errorf("partner already has a current marriage: %w", apperr.ErrValidation)
			}
		}

		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = time.Now()

		err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(order_index), 0) + 1
			FROM marriage
			WHERE (husband_id = $1 OR wife_id = $2) AND deleted_at IS NULL
		`, m.HusbandID, m.WifeID).Scan(&m.OrderIndex)
		if err != nil {
			return fmt.Errorf("next marriage order: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO marriage (id, husband_id, wife_id, status, order_index, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.HusbandID, m.WifeID, m.Status, m.OrderIndex, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert marriage: %w", err)
		}

		entry.PersonID = m.HusbandID
		return insertAuditEntry(ctx, tx, entry)
	})

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("partner already has a current marriage: %w", apperr.ErrValidation)
	}
	return err
}

// End flips a current marriage to past and appends the audit entry
func (r *MarriageRepository) End(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var husbandID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE marriage SET status = 'past'
			WHERE id = $1 AND status = 'current' AND deleted_at IS NULL
			RETURNING husband_id
		`, id).Scan(&husbandID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("end marriage: %w", err)
		}

		entry.PersonID = husbandID
		return insertAuditEntry(ctx, tx, entry)
	})
}
