package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/queue"
	"github.com/qefaraki/lineage/common/repository"
	"github.com/qefaraki/lineage/common/validation"
)

// MutationService is the single write path for person fields. Every
// edit goes through the guarded apply: validated change set, permission
// check, version compare and audit entry in one transaction.
type MutationService struct {
	mutations    MutationStore
	persons      PersonStore
	permissions  *PermissionService
	relationship *RelationshipService
	queue        queue.Queue
	log          *logger.Logger
}

// NewMutationService creates a new mutation service
func NewMutationService(mutations MutationStore, persons PersonStore, permissions *PermissionService, relationship *RelationshipService, q queue.Queue, log *logger.Logger) *MutationService {
	return &MutationService{
		mutations:    mutations,
		persons:      persons,
		permissions:  permissions,
		relationship: relationship,
		queue:        q,
		log:          log,
	}
}

// UpdateInput is a direct field edit against a known record version.
type UpdateInput struct {
	ActorID         uuid.UUID
	TargetID        uuid.UUID
	ExpectedVersion int64
	Changes         map[string]any
	Description     string
}

// Update applies a direct edit. The actor needs full access over the
// target; anything less is rejected before the transaction starts, so
// suggest-level users get ErrUnauthorized here and must go through the
// suggestion workflow instead.
func (s *MutationService) Update(ctx context.Context, in UpdateInput) (*models.Person, error) {
	changes, err := validation.ValidateChanges(in.Changes)
	if err != nil {
		return nil, err
	}

	// Distinguish a missing target from an unauthorized actor before
	// evaluating permissions; both collapse to LevelNone otherwise.
	if _, err := s.persons.GetByID(ctx, in.TargetID); err != nil {
		return nil, err
	}

	level, err := s.permissions.Evaluate(ctx, in.ActorID, in.TargetID)
	if err != nil {
		return nil, err
	}
	if level != models.LevelFull {
		return nil, apperr.ErrUnauthorized
	}

	entry := &models.AuditEntry{
		ActorID:     in.ActorID,
		Action:      models.ActionUpdate,
		Description: in.Description,
		Severity:    models.SeverityLow,
	}
	if changes.Structural() {
		entry.Severity = models.SeverityMedium
	}

	return s.Apply(ctx, &repository.ApplyRequest{
		TargetID:        in.TargetID,
		ExpectedVersion: in.ExpectedVersion,
		Changes:         changes,
		Entry:           entry,
	})
}

// Apply runs a prepared guarded mutation and the follow-up work every
// successful apply shares: relationship cache invalidation and, for
// structural edits, the layout recalculation trigger. The audit and
// suggestion services reuse it for their composite flows.
func (s *MutationService) Apply(ctx context.Context, req *repository.ApplyRequest) (*models.Person, error) {
	updated, err := s.mutations.ApplyGuarded(ctx, req)
	if err != nil {
		return nil, err
	}

	s.log.WithActor(req.Entry.ActorID.String()).WithPerson(req.TargetID.String()).Info("mutation applied",
		"action", req.Entry.Action,
		"version", updated.Version,
		"fields", req.Entry.ChangedFields,
	)

	s.relationship.InvalidateRef(ctx, req.TargetID)
	if req.Changes.Structural() {
		s.triggerLayout(ctx, req.TargetID)
	}
	return updated, nil
}

// triggerLayout enqueues a layout recalculation for the subtree around
// the mutated person. Delivery is best effort; a full drop is logged
// and the next structural edit will enqueue again.
func (s *MutationService) triggerLayout(ctx context.Context, personID uuid.UUID) {
	if err := s.queue.Publish(ctx, queue.TopicLayoutRecalc, personID.String(), []byte(personID.String())); err != nil {
		s.log.Warn("layout recalc enqueue failed", "person_id", personID, "error", err)
	}
}
