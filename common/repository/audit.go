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

const auditColumns = `
	id, actor_id, action, person_id, old_data, new_data, changed_fields,
	description, severity, suggestion_id, result_version, created_at,
	reverted_at, reverted_by
`

// AuditRepository handles database operations for the append-only ledger
type AuditRepository struct {
	db *db.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *db.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// GetByID retrieves an audit entry
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entry
		WHERE id = $1
	`

	return scanAuditEntry(r.db.QueryRow(ctx, query, id))
}

// ListByPerson returns the newest entries for one person
func (r *AuditRepository) ListByPerson(ctx context.Context, personID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + auditColumns + `
		FROM audit_entry
		WHERE person_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, personID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Insert appends a standalone entry (admin operations that do not touch
// a person's version counter still leave a ledger line)
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return insertAuditEntry(ctx, tx, entry)
	})
}

func scanAuditEntry(row pgx.Row) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{}
	err := row.Scan(
		&entry.ID, &entry.ActorID, &entry.Action, &entry.PersonID,
		&entry.OldData, &entry.NewData, &entry.ChangedFields,
		&entry.Description, &entry.Severity, &entry.SuggestionID,
		&entry.ResultVersion, &entry.CreatedAt, &entry.RevertedAt,
		&entry.RevertedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	return entry, nil
}

func insertAuditEntry(ctx context.Context, tx pgx.Tx, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Severity == 0 {
		entry.Severity = models.SeverityLow
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO audit_entry (
			id, actor_id, action, person_id, old_data, new_data,
			changed_fields, description, severity, suggestion_id,
			result_version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		entry.ID, entry.ActorID, entry.Action, entry.PersonID, entry.OldData,
		entry.NewData, entry.ChangedFields, entry.Description, entry.Severity,
		entry.SuggestionID, entry.ResultVersion, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
