package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/notify"
	"github.com/qefaraki/lineage/common/repository"
	"github.com/qefaraki/lineage/common/validation"
)

// SuggestionService runs the propose/review workflow for actors whose
// access level is suggest. Approval funnels through the same guarded
// apply path as a direct edit, so an approved suggestion can still lose
// a version race and nothing is half-applied.
type SuggestionService struct {
	suggestions SuggestionStore
	persons     PersonStore
	mutations   *MutationService
	permissions *PermissionService
	notify      notify.Dispatcher
	log         *logger.Logger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(suggestions SuggestionStore, persons PersonStore, mutations *MutationService, permissions *PermissionService, dispatcher notify.Dispatcher, log *logger.Logger) *SuggestionService {
	return &SuggestionService{
		suggestions: suggestions,
		persons:     persons,
		mutations:   mutations,
		permissions: permissions,
		notify:      dispatcher,
		log:         log,
	}
}

// ProposeInput is one proposed single-field change.
type ProposeInput struct {
	ActorID  uuid.UUID
	TargetID uuid.UUID
	Field    string
	NewValue *string
	Reason   string
}

// Propose records a pending suggestion. Anyone with suggest access or
// better may propose; blocked and unrelated-missing actors may not. The
// old value is captured at proposal time so reviewers see what the
// proposer saw.
func (s *SuggestionService) Propose(ctx context.Context, in ProposeInput) (*models.EditSuggestion, error) {
	field, err := validation.ValidateField(in.Field)
	if err != nil {
		return nil, err
	}
	// Probe the value through the field's setter now, not at approval
	// time, so the reviewer is never handed an unappliable suggestion.
	raw, err := validation.CoerceString(field, in.NewValue)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", in.Field, err)
	}
	if _, err := validation.ValidateChanges(map[string]any{string(field): raw}); err != nil {
		return nil, err
	}

	target, err := s.persons.GetByID(ctx, in.TargetID)
	if err != nil {
		return nil, err
	}

	level, err := s.permissions.Evaluate(ctx, in.ActorID, in.TargetID)
	if err != nil {
		return nil, err
	}
	if !level.CanSuggest() {
		return nil, apperr.ErrUnauthorized
	}

	sg := &models.EditSuggestion{
		ID:         uuid.New(),
		PersonID:   in.TargetID,
		ProposedBy: in.ActorID,
		FieldName:  string(field),
		OldValue:   validation.SnapshotString(target, field),
		NewValue:   in.NewValue,
		Reason:     in.Reason,
		Status:     models.SuggestionPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.suggestions.Create(ctx, sg); err != nil {
		return nil, err
	}

	s.log.WithActor(in.ActorID.String()).WithPerson(in.TargetID.String()).Info("suggestion created",
		"suggestion_id", sg.ID, "field", sg.FieldName)
	s.dispatch(ctx, notify.EventSuggestionCreated, in.ActorID, sg)
	return sg, nil
}

// Approve applies a pending suggestion as a guarded mutation at the
// target's current version and settles the suggestion in the same
// transaction. A suggestion already out of pending fails the whole
// operation with ErrAlreadyProcessed and the target is untouched.
func (s *SuggestionService) Approve(ctx context.Context, reviewerID, suggestionID uuid.UUID) (*models.Person, error) {
	sg, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.Status != models.SuggestionPending {
		return nil, fmt.Errorf("suggestion %s is %s: %w", sg.ID, sg.Status, apperr.ErrAlreadyProcessed)
	}
	if err := s.authorizeReview(ctx, reviewerID, sg.PersonID); err != nil {
		return nil, err
	}

	target, err := s.persons.GetByID(ctx, sg.PersonID)
	if err != nil {
		return nil, err
	}

	field, err := validation.ValidateField(sg.FieldName)
	if err != nil {
		return nil, err
	}
	raw, err := validation.CoerceString(field, sg.NewValue)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", sg.FieldName, err)
	}
	changes, err := validation.ValidateChanges(map[string]any{string(field): raw})
	if err != nil {
		return nil, err
	}

	entry := &models.AuditEntry{
		ActorID:     reviewerID,
		Action:      models.ActionSuggestionApprove,
		Description: fmt.Sprintf("approved suggestion by %s", sg.ProposedBy),
		Severity:    models.SeverityLow,
	}

	updated, err := s.mutations.Apply(ctx, &repository.ApplyRequest{
		TargetID:        sg.PersonID,
		ExpectedVersion: target.Version,
		Changes:         changes,
		Entry:           entry,
		Decide: &repository.SuggestionDecision{
			SuggestionID: sg.ID,
			Status:       models.SuggestionApproved,
			ReviewerID:   reviewerID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.EventSuggestionApproved, reviewerID, sg)
	return updated, nil
}

// Reject settles a pending suggestion without touching the target.
func (s *SuggestionService) Reject(ctx context.Context, reviewerID, suggestionID uuid.UUID, reason string) error {
	sg, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return err
	}
	if err := s.authorizeReview(ctx, reviewerID, sg.PersonID); err != nil {
		return err
	}

	entry := &models.AuditEntry{
		ActorID:     reviewerID,
		Action:      models.ActionSuggestionReject,
		Description: reason,
		Severity:    models.SeverityLow,
	}
	if err := s.suggestions.Reject(ctx, suggestionID, reviewerID, reason, entry); err != nil {
		return err
	}

	s.dispatch(ctx, notify.EventSuggestionRejected, reviewerID, sg)
	return nil
}

// Cancel withdraws a pending suggestion. Only its proposer may cancel.
func (s *SuggestionService) Cancel(ctx context.Context, actorID, suggestionID uuid.UUID) error {
	sg, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return err
	}
	if sg.ProposedBy != actorID {
		return apperr.ErrUnauthorized
	}
	if err := s.suggestions.Cancel(ctx, suggestionID); err != nil {
		return err
	}
	s.dispatch(ctx, notify.EventSuggestionCancelled, actorID, sg)
	return nil
}

// Get returns one suggestion, visible to its proposer and to anyone who
// could review it.
func (s *SuggestionService) Get(ctx context.Context, actorID, suggestionID uuid.UUID) (*models.EditSuggestion, error) {
	sg, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if sg.ProposedBy == actorID {
		return sg, nil
	}
	if err := s.authorizeReview(ctx, actorID, sg.PersonID); err != nil {
		return nil, err
	}
	return sg, nil
}

// ListPending returns pending suggestions the actor may review,
// optionally filtered to one person.
func (s *SuggestionService) ListPending(ctx context.Context, actorID uuid.UUID, personID *uuid.UUID, limit int) ([]*models.EditSuggestion, error) {
	all, err := s.suggestions.List(ctx, models.SuggestionPending, personID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.EditSuggestion, 0, len(all))
	for _, sg := range all {
		if sg.ProposedBy == actorID {
			out = append(out, sg)
			continue
		}
		if err := s.authorizeReview(ctx, actorID, sg.PersonID); err == nil {
			out = append(out, sg)
		}
	}
	return out, nil
}

// authorizeReview admits moderator-role reviewers directly, then anyone
// with full access over the suggestion's subject: admins, the subject
// themselves, close relatives and covering branch moderators qualify
// through the permission chain. A full-level relative could edit the
// field outright, so letting them settle suggestions widens nothing.
func (s *SuggestionService) authorizeReview(ctx context.Context, reviewerID, personID uuid.UUID) error {
	reviewer, err := s.persons.GetByID(ctx, reviewerID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err == nil && reviewer.Role == models.RoleModerator {
		return nil
	}

	level, err := s.permissions.Evaluate(ctx, reviewerID, personID)
	if err != nil {
		return err
	}
	if level != models.LevelFull {
		return apperr.ErrUnauthorized
	}
	return nil
}

func (s *SuggestionService) dispatch(ctx context.Context, kind string, actorID uuid.UUID, sg *models.EditSuggestion) {
	s.notify.Dispatch(ctx, notify.Event{
		Kind:      kind,
		ActorID:   actorID,
		PersonID:  sg.PersonID,
		SubjectID: sg.ID,
		At:        time.Now().UTC(),
	})
}
