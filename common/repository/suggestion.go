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

const suggestionColumns = `
	id, person_id, proposed_by, field_name, old_value, new_value, reason,
	status, reviewed_by, reviewed_at, reject_reason, created_at
`

// SuggestionRepository handles database operations for edit suggestions
type SuggestionRepository struct {
	db *db.DB
}

// NewSuggestionRepository creates a new suggestion repository
func NewSuggestionRepository(db *db.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Create inserts a pending suggestion
func (r *SuggestionRepository) Create(ctx context.Context, s *models.EditSuggestion) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Status = models.SuggestionPending
	s.CreatedAt = time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO edit_suggestion (
			id, person_id, proposed_by, field_name, old_value, new_value,
			reason, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		s.ID, s.PersonID, s.ProposedBy, s.FieldName, s.OldValue, s.NewValue,
		s.Reason, s.Status, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert suggestion: %w", err)
	}
	return nil
}

// GetByID retrieves a suggestion
func (r *SuggestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EditSuggestion, error) {
	query := `
		SELECT ` + suggestionColumns + `
		FROM edit_suggestion
		WHERE id = $1
	`

	return scanSuggestion(r.db.QueryRow(ctx, query, id))
}

// List returns suggestions filtered by status and/or target person
func (r *SuggestionRepository) List(ctx context.Context, status models.SuggestionStatus, personID *uuid.UUID, limit int) ([]*models.EditSuggestion, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + suggestionColumns + `
		FROM edit_suggestion
		WHERE ($1 = '' OR status = $1)
		  AND ($2::uuid IS NULL OR person_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, string(status), personID, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []*models.EditSuggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// Reject marks a pending suggestion rejected and appends the audit entry
// in the same transaction. Losing a race to another reviewer yields
// ErrAlreadyProcessed.
func (r *SuggestionRepository) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var personID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE edit_suggestion
			SET status = 'rejected', reviewed_by = $2, reviewed_at = NOW(),
			    reject_reason = $3
			WHERE id = $1 AND status = 'pending'
			RETURNING person_id
		`, id, reviewerID, reason).Scan(&personID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrAlreadyProcessed
		}
		if err != nil {
			return fmt.Errorf("reject suggestion: %w", err)
		}

		entry.PersonID = personID
		entry.SuggestionID = &id
		return insertAuditEntry(ctx, tx, entry)
	})
}

// Cancel retracts a pending suggestion; only transitions out of pending
func (r *SuggestionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE edit_suggestion
		SET status = 'cancelled', reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("cancel suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyProcessed
	}
	return nil
}

func scanSuggestion(row pgx.Row) (*models.EditSuggestion, error) {
	s := &models.EditSuggestion{}
	err := row.Scan(
		&s.ID, &s.PersonID, &s.ProposedBy, &s.FieldName, &s.OldValue,
		&s.NewValue, &s.Reason, &s.Status, &s.ReviewedBy, &s.ReviewedAt,
		&s.RejectReason, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	return s, nil
}
