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
	"github.com/qefaraki/lineage/common/snapshot"
)

const personColumns = `
	id, name, kunya, gender, generation, father_id, mother_id, sibling_order,
	status, bio, birth_date, death_date, birth_place, residence, occupation,
	phone, email, photo_url, role, version, created_at, updated_at, updated_by,
	deleted_at
`

// PersonRepository handles database operations for persons
type PersonRepository struct {
	db *db.DB
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *db.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

func scanPerson(row pgx.Row) (*models.Person, error) {
	p := &models.Person{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Kunya, &p.Gender, &p.Generation, &p.FatherID,
		&p.MotherID, &p.SiblingOrder, &p.Status, &p.Bio, &p.BirthDate,
		&p.DeathDate, &p.BirthPlace, &p.Residence, &p.Occupation, &p.Phone,
		&p.Email, &p.PhotoURL, &p.Role, &p.Version, &p.CreatedAt,
		&p.UpdatedAt, &p.UpdatedBy, &p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person: %w", err)
	}
	return p, nil
}

// GetByID retrieves a person, excluding soft-deleted rows
func (r *PersonRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM person
		WHERE id = $1 AND deleted_at IS NULL
	`

	return scanPerson(r.db.QueryRow(ctx, query, id))
}

// GetRef retrieves the structure-only projection of a person.
// Unlike GetByID this also returns soft-deleted rows, flagged, so
// traversal can skip them without treating them as absent parents.
func (r *PersonRepository) GetRef(ctx context.Context, id uuid.UUID) (*models.PersonRef, error) {
	query := `
		SELECT id, father_id, mother_id, gender, generation, sibling_order,
		       deleted_at IS NOT NULL AS deleted
		FROM person
		WHERE id = $1
	`

	ref := &models.PersonRef{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ref.ID, &ref.FatherID, &ref.MotherID, &ref.Gender,
		&ref.Generation, &ref.SiblingOrder, &ref.Deleted,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person ref: %w", err)
	}
	return ref, nil
}

// ListChildren returns structure rows of everyone whose father or mother
// is the given person, excluding soft-deleted rows
func (r *PersonRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.PersonRef, error) {
	query := `
		SELECT id, father_id, mother_id, gender, generation, sibling_order,
		       false AS deleted
		FROM person
		WHERE (father_id = $1 OR mother_id = $1) AND deleted_at IS NULL
		ORDER BY sibling_order, created_at
	`

	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	return collectRefs(rows)
}

// ListStructure returns the structure projection of the whole graph,
// including soft-deleted rows (flagged), for the integrity diagnostic.
func (r *PersonRepository) ListStructure(ctx context.Context) ([]*models.PersonRef, error) {
	query := `
		SELECT id, father_id, mother_id, gender, generation, sibling_order,
		       deleted_at IS NOT NULL AS deleted
		FROM person
		ORDER BY generation, sibling_order
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list structure: %w", err)
	}
	defer rows.Close()

	return collectRefs(rows)
}

func collectRefs(rows pgx.Rows) ([]*models.PersonRef, error) {
	var refs []*models.PersonRef
	for rows.Next() {
		ref := &models.PersonRef{}
		if err := rows.Scan(
			&ref.ID, &ref.FatherID, &ref.MotherID, &ref.Gender,
			&ref.Generation, &ref.SiblingOrder, &ref.Deleted,
		); err != nil {
			return nil, fmt.Errorf("scan person ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Create inserts a new person and its audit entry in one transaction
func (r *PersonRepository) Create(ctx context.Context, p *models.Person, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := insertPerson(ctx, tx, p); err != nil {
			return err
		}

		newData, err := snapshot.Marshal(p)
		if err != nil {
			return err
		}
		entry.PersonID = p.ID
		entry.NewData = newData
		entry.ResultVersion = &p.Version

		return insertAuditEntry(ctx, tx, entry)
	})
}

// CreateChildren inserts a batch of children of one parent, holding the
// per-parent advisory lock for the whole batch so concurrent batches
// cannot collide on sibling_order assignment.
func (r *PersonRepository) CreateChildren(ctx context.Context, parentID uuid.UUID, children []*models.Person, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(parentID)); err != nil {
			return fmt.Errorf("acquire parent lock: %w", err)
		}

		var next int
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(sibling_order), 0)
			FROM person
			WHERE father_id = $1 AND deleted_at IS NULL
		`, parentID).Scan(&next)
		if err != nil {
			return fmt.Errorf("next sibling order: %w", err)
		}

		for _, child := range children {
			next++
			child.SiblingOrder = next
			if err := insertPerson(ctx, tx, child); err != nil {
				return err
			}
		}

		entry.PersonID = parentID
		return insertAuditEntry(ctx, tx, entry)
	})
}

// SetRole updates a person's platform role and records the change
func (r *PersonRepository) SetRole(ctx context.Context, id uuid.UUID, role models.Role, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE person SET role = $2, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`, id, role)
		if err != nil {
			return fmt.Errorf("set role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}

		entry.PersonID = id
		return insertAuditEntry(ctx, tx, entry)
	})
}

// SoftDelete marks a person deleted. The row stays; traversal and
// lookups stop seeing it.
func (r *PersonRepository) SoftDelete(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		old, err := selectPersonForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		oldData, err := snapshot.Marshal(old)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE person SET deleted_at = NOW(), updated_at = NOW(), updated_by = $2
			WHERE id = $1 AND deleted_at IS NULL
		`, id, entry.ActorID)
		if err != nil {
			return fmt.Errorf("soft delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}

		entry.PersonID = id
		entry.OldData = oldData
		return insertAuditEntry(ctx, tx, entry)
	})
}

func insertPerson(ctx context.Context, tx pgx.Tx, p *models.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Status == "" {
		p.Status = models.StatusAlive
	}
	if p.Role == "" {
		p.Role = models.RoleNone
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO person (
			id, name, kunya, gender, generation, father_id, mother_id,
			sibling_order, status, bio, birth_date, death_date, birth_place,
			residence, occupation, phone, email, photo_url, role, version,
			created_at, updated_at, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
	`,
		p.ID, p.Name, p.Kunya, p.Gender, p.Generation, p.FatherID, p.MotherID,
		p.SiblingOrder, p.Status, p.Bio, p.BirthDate, p.DeathDate, p.BirthPlace,
		p.Residence, p.Occupation, p.Phone, p.Email, p.PhotoURL, p.Role,
		p.Version, p.CreatedAt, p.UpdatedAt, p.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func selectPersonForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Person, error) {
	query := `
		SELECT ` + personColumns + `
		FROM person
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	return scanPerson(tx.QueryRow(ctx, query, id))
}

// advisoryKey folds a uuid into the bigint keyspace of pg advisory locks
func advisoryKey(id uuid.UUID) int64 {
	var key int64
	for i := 0; i < 8; i++ {
		key = key<<8 | int64(id[i])
	}
	return key
}
