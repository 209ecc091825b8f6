package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
)

// AdminService covers the moderation surface: branch moderator grants,
// suggestion blocks and platform role changes. Every operation here
// requires an admin actor.
type AdminService struct {
	persons     PersonStore
	grants      GrantStore
	permissions *PermissionService
	log         *logger.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(persons PersonStore, grants GrantStore, permissions *PermissionService, log *logger.Logger) *AdminService {
	return &AdminService{
		persons:     persons,
		grants:      grants,
		permissions: permissions,
		log:         log,
	}
}

func (s *AdminService) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	isAdmin, err := s.permissions.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.ErrUnauthorized
	}
	return nil
}

// GrantModerator gives granteeID full access over rootID's branch.
func (s *AdminService) GrantModerator(ctx context.Context, actorID, granteeID, rootID uuid.UUID) (*models.BranchModeratorGrant, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.persons.GetByID(ctx, granteeID); err != nil {
		return nil, fmt.Errorf("grantee: %w", err)
	}
	if _, err := s.persons.GetByID(ctx, rootID); err != nil {
		return nil, fmt.Errorf("branch root: %w", err)
	}

	g := &models.BranchModeratorGrant{
		ID:        uuid.New(),
		ActorID:   granteeID,
		RootID:    rootID,
		Active:    true,
		GrantedBy: actorID,
		GrantedAt: time.Now().UTC(),
	}
	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionGrantModerator,
		Severity: models.SeverityMedium,
	}
	if err := s.grants.CreateGrant(ctx, g, entry); err != nil {
		return nil, err
	}
	s.log.WithActor(actorID.String()).Info("moderator granted", "grantee", granteeID, "root", rootID)
	return g, nil
}

// RevokeModerator deactivates a grant. The grant row stays for history.
func (s *AdminService) RevokeModerator(ctx context.Context, actorID, grantID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionRevokeModerator,
		Severity: models.SeverityMedium,
	}
	return s.grants.RevokeGrant(ctx, grantID, actorID, entry)
}

// BlockSuggestions downgrades personID's baseline level to blocked.
// Relation-based full access is unaffected.
func (s *AdminService) BlockSuggestions(ctx context.Context, actorID, personID uuid.UUID, reason string) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if _, err := s.persons.GetByID(ctx, personID); err != nil {
		return err
	}
	b := &models.SuggestionBlock{
		ID:        uuid.New(),
		PersonID:  personID,
		BlockedBy: actorID,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionBlockSuggest,
		Severity: models.SeverityMedium,
	}
	return s.grants.CreateBlock(ctx, b, entry)
}

// UnblockSuggestions lifts a suggestion block.
func (s *AdminService) UnblockSuggestions(ctx context.Context, actorID, personID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionUnblockSuggest,
		Severity: models.SeverityMedium,
	}
	return s.grants.DeleteBlock(ctx, personID, entry)
}

// SetRole changes a person's platform role. Admins cannot change their
// own role: demotion needs a second admin, which keeps the platform
// from losing its last admin to a slip.
func (s *AdminService) SetRole(ctx context.Context, actorID, personID uuid.UUID, role models.Role) error {
	switch role {
	case models.RoleNone, models.RoleModerator, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return fmt.Errorf("unknown role %q: %w", role, apperr.ErrValidation)
	}
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if actorID == personID {
		return fmt.Errorf("cannot change own role: %w", apperr.ErrUnauthorized)
	}
	if _, err := s.persons.GetByID(ctx, personID); err != nil {
		return err
	}

	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionRoleChange,
		Severity: models.SeverityHigh,
	}
	if err := s.persons.SetRole(ctx, personID, role, entry); err != nil {
		return err
	}
	s.log.WithActor(actorID.String()).WithPerson(personID.String()).Info("role changed", "role", role)
	return nil
}
