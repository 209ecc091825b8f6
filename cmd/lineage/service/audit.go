package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/notify"
	"github.com/qefaraki/lineage/common/repository"
	"github.com/qefaraki/lineage/common/snapshot"
	"github.com/qefaraki/lineage/common/validation"
)

// AuditService exposes the ledger and the revert operation. The ledger
// itself is append-only; revert never rewrites history, it applies the
// inverse as a fresh guarded mutation and stamps the original entry.
type AuditService struct {
	audits      AuditStore
	mutations   *MutationService
	permissions *PermissionService
	notify      notify.Dispatcher
	log         *logger.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(audits AuditStore, mutations *MutationService, permissions *PermissionService, dispatcher notify.Dispatcher, log *logger.Logger) *AuditService {
	return &AuditService{
		audits:      audits,
		mutations:   mutations,
		permissions: permissions,
		notify:      dispatcher,
		log:         log,
	}
}

// Get returns one ledger entry. Readable by admins and by anyone with
// at least suggest access over the entry's subject.
func (s *AuditService) Get(ctx context.Context, actorID, entryID uuid.UUID) (*models.AuditEntry, error) {
	entry, err := s.audits.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actorID, entry.PersonID); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListByPerson returns a person's ledger, newest first.
func (s *AuditService) ListByPerson(ctx context.Context, actorID, personID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	if err := s.authorizeRead(ctx, actorID, personID); err != nil {
		return nil, err
	}
	return s.audits.ListByPerson(ctx, personID, limit)
}

func (s *AuditService) authorizeRead(ctx context.Context, actorID, personID uuid.UUID) error {
	level, err := s.permissions.Evaluate(ctx, actorID, personID)
	if err != nil {
		return err
	}
	if !level.CanSuggest() {
		return apperr.ErrUnauthorized
	}
	return nil
}

// Revert undoes one field-update entry by applying its old snapshot as
// a new guarded mutation. The entry's result version is the expected
// version, so any edit made since the original mutation surfaces as a
// version conflict instead of being silently overwritten. The reverted
// record ends two versions ahead of where it started.
func (s *AuditService) Revert(ctx context.Context, actorID, entryID uuid.UUID) (*models.Person, error) {
	entry, err := s.audits.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	// Admins may revert anything; the original actor may undo their own.
	if actorID != entry.ActorID {
		isAdmin, err := s.permissions.IsAdmin(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, apperr.ErrUnauthorized
		}
	}

	// Reverting a revert would rewrite history through the back door;
	// redo the edit forward instead.
	if entry.Action == models.ActionRevert {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, apperr.ErrNotRevertable)
	}
	if entry.OldData == nil || entry.ResultVersion == nil {
		return nil, fmt.Errorf("entry %s has no before-state: %w", entry.ID, apperr.ErrNotRevertable)
	}
	if entry.Reverted() {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, apperr.ErrAlreadyReverted)
	}

	before, err := snapshot.Restore(entry.OldData)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot for entry %s: %w", entry.ID, err)
	}
	changes, err := inverseChanges(before, entry.ChangedFields)
	if err != nil {
		return nil, err
	}

	revertEntry := &models.AuditEntry{
		ActorID:     actorID,
		Action:      models.ActionRevert,
		Description: fmt.Sprintf("revert of %s", entry.ID),
		Severity:    models.SeverityMedium,
	}

	updated, err := s.mutations.Apply(ctx, &repository.ApplyRequest{
		TargetID:        entry.PersonID,
		ExpectedVersion: *entry.ResultVersion,
		Changes:         changes,
		Entry:           revertEntry,
		StampReverted: &repository.RevertStamp{
			EntryID: entry.ID,
			ActorID: actorID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.notify.Dispatch(ctx, notify.Event{
		Kind:      notify.EventMutationReverted,
		ActorID:   actorID,
		PersonID:  entry.PersonID,
		SubjectID: entry.ID,
		At:        time.Now().UTC(),
	})
	return updated, nil
}

// inverseChanges rebuilds a change set that restores the listed fields
// to their values in the before-snapshot.
func inverseChanges(before *models.Person, fieldNames []string) (validation.ChangeSet, error) {
	changes := validation.ChangeSet{}
	for _, name := range fieldNames {
		f, err := validation.ValidateField(name)
		if err != nil {
			return nil, err
		}
		raw, err := validation.CoerceString(f, validation.SnapshotString(before, f))
		if err != nil {
			return nil, err
		}
		changes[f] = raw
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("entry lists no changed fields: %w", apperr.ErrNotRevertable)
	}
	return changes, nil
}
