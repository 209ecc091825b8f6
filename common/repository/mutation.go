package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/db"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/snapshot"
	"github.com/qefaraki/lineage/common/validation"
)

// ApplyRequest describes one guarded mutation: the version-checked field
// update plus everything that must commit or roll back with it.
type ApplyRequest struct {
	TargetID        uuid.UUID
	ExpectedVersion int64
	Changes         validation.ChangeSet

	// Ledger entry template; the store fills snapshots, changed fields
	// and result version from the transaction's own view of the row.
	Entry *models.AuditEntry

	// If set, the suggestion this mutation settles transitions out of
	// pending in the same transaction. A suggestion already decided
	// aborts the whole apply with ErrAlreadyProcessed.
	Decide *SuggestionDecision

	// If set, the audit entry being reverted is stamped in the same
	// transaction. An entry already stamped aborts the whole apply
	// with ErrAlreadyReverted.
	StampReverted *RevertStamp
}

// SuggestionDecision settles a pending suggestion alongside a mutation
type SuggestionDecision struct {
	SuggestionID uuid.UUID
	Status       models.SuggestionStatus
	ReviewerID   uuid.UUID
}

// RevertStamp marks a prior audit entry reverted alongside a mutation
type RevertStamp struct {
	EntryID uuid.UUID
	ActorID uuid.UUID
}

// MutationRepository executes guarded mutations against the person table
type MutationRepository struct {
	db *db.DB
}

// NewMutationRepository creates a new mutation repository
func NewMutationRepository(db *db.DB) *MutationRepository {
	return &MutationRepository{db: db}
}

// ApplyGuarded runs the compare-and-swap mutation in one transaction:
// row lock, version compare, field update with version+1, audit insert,
// and any requested stamps. On version mismatch nothing is applied and
// the error carries both versions.
func (r *MutationRepository) ApplyGuarded(ctx context.Context, req *ApplyRequest) (*models.Person, error) {
	var updated *models.Person

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		old, err := selectPersonForUpdate(ctx, tx, req.TargetID)
		if err != nil {
			return err
		}

		if old.Version != req.ExpectedVersion {
			return &apperr.VersionConflictError{
				Expected: req.ExpectedVersion,
				Actual:   old.Version,
			}
		}

		oldData, err := snapshot.Marshal(old)
		if err != nil {
			return err
		}

		next := *old
		if err := req.Changes.Apply(&next); err != nil {
			return err
		}
		next.Version = old.Version + 1
		next.UpdatedAt = time.Now()
		next.UpdatedBy = &req.Entry.ActorID

		if err := updateGuarded(ctx, tx, &next, req.ExpectedVersion); err != nil {
			return err
		}

		newData, err := snapshot.Marshal(&next)
		if err != nil {
			return err
		}
		changed, err := snapshot.ChangedFields(oldData, newData)
		if err != nil {
			return err
		}

		entry := req.Entry
		entry.PersonID = next.ID
		entry.OldData = oldData
		entry.NewData = newData
		entry.ChangedFields = changed
		entry.ResultVersion = &next.Version

		if err := insertAuditEntry(ctx, tx, entry); err != nil {
			return err
		}

		if req.Decide != nil {
			if err := decideSuggestion(ctx, tx, req.Decide, entry.ID); err != nil {
				return err
			}
		}

		if req.StampReverted != nil {
			if err := stampReverted(ctx, tx, req.StampReverted); err != nil {
				return err
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// updateGuarded writes every editable column plus the incremented
// version. The version predicate is belt and braces: the row is already
// locked, but a mismatch here can only mean the guard was bypassed.
func updateGuarded(ctx context.Context, tx pgx.Tx, p *models.Person, expectedVersion int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE person
		SET name = $3, kunya = $4, father_id = $5, mother_id = $6,
		    sibling_order = $7, status = $8, bio = $9, birth_date = $10,
		    death_date = $11, birth_place = $12, residence = $13,
		    occupation = $14, phone = $15, email = $16, photo_url = $17,
		    version = $18, updated_at = $19, updated_by = $20
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`,
		p.ID, expectedVersion, p.Name, p.Kunya, p.FatherID, p.MotherID,
		p.SiblingOrder, p.Status, p.Bio, p.BirthDate, p.DeathDate,
		p.BirthPlace, p.Residence, p.Occupation, p.Phone, p.Email,
		p.PhotoURL, p.Version, p.UpdatedAt, p.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("guarded update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guarded update affected no rows for %s", p.ID)
	}
	return nil
}

func decideSuggestion(ctx context.Context, tx pgx.Tx, d *SuggestionDecision, entryID uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE edit_suggestion
		SET status = $2, reviewed_by = $3, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, d.SuggestionID, d.Status, d.ReviewerID)
	if err != nil {
		return fmt.Errorf("decide suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyProcessed
	}

	_, err = tx.Exec(ctx, `
		UPDATE audit_entry SET suggestion_id = $2 WHERE id = $1
	`, entryID, d.SuggestionID)
	if err != nil {
		return fmt.Errorf("link suggestion to audit entry: %w", err)
	}
	return nil
}

func stampReverted(ctx context.Context, tx pgx.Tx, s *RevertStamp) error {
	tag, err := tx.Exec(ctx, `
		UPDATE audit_entry
		SET reverted_at = NOW(), reverted_by = $2
		WHERE id = $1 AND reverted_at IS NULL
	`, s.EntryID, s.ActorID)
	if err != nil {
		return fmt.Errorf("stamp reverted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyReverted
	}
	return nil
}
