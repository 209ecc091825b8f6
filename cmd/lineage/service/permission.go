package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
)

// PermissionService maps an (actor, target) pair to an access level.
// The rule chain is first-match-wins and is the contract, not an
// implementation detail: blocking is checked only after every
// relation-based full rule, so a blocked user who is also a close
// relative keeps full rights. Blocking restricts unrelated strangers,
// not family.
type PermissionService struct {
	persons      PersonStore
	relationship *RelationshipService
	grants       GrantStore
	policy       *Policy
	log          *logger.Logger
}

// NewPermissionService creates a new permission service. policy may be
// nil when no deployment policy expression is configured.
func NewPermissionService(persons PersonStore, relationship *RelationshipService, grants GrantStore, policy *Policy, log *logger.Logger) *PermissionService {
	return &PermissionService{
		persons:      persons,
		relationship: relationship,
		grants:       grants,
		policy:       policy,
		log:          log,
	}
}

// Evaluate returns the actor's access level over the target. The
// evaluation is total over record state: missing or soft-deleted actors
// and targets yield LevelNone, never an error. Errors are reserved for
// store failures.
func (s *PermissionService) Evaluate(ctx context.Context, actorID, targetID uuid.UUID) (models.PermissionLevel, error) {
	level, actor, target, err := s.evaluateChain(ctx, actorID, targetID)
	if err != nil {
		return models.LevelNone, err
	}

	if s.policy != nil && actor != nil && target != nil {
		adjusted, err := s.policy.Apply(ctx, actor, target, level)
		if err != nil {
			// A broken policy expression must not widen access; keep
			// the chain's level and flag the expression.
			s.log.Warn("permission policy evaluation failed", "error", err)
			return level, nil
		}
		level = adjusted
	}

	return level, nil
}

func (s *PermissionService) evaluateChain(ctx context.Context, actorID, targetID uuid.UUID) (models.PermissionLevel, *models.Person, *models.Person, error) {
	// Rule 1: actor or target missing
	actor, err := s.persons.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.LevelNone, nil, nil, nil
		}
		return models.LevelNone, nil, nil, fmt.Errorf("load actor: %w", err)
	}
	target, err := s.persons.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.LevelNone, actor, nil, nil
		}
		return models.LevelNone, actor, nil, fmt.Errorf("load target: %w", err)
	}

	// Rule 2: admin role
	if actor.Role.IsAdmin() {
		return models.LevelFull, actor, target, nil
	}

	// Rule 3: self-edit, independent of graph relation
	if actor.ID == target.ID {
		return models.LevelFull, actor, target, nil
	}

	// Rule 4: actor is an ancestor of target, any depth
	isAncestor, err := s.relationship.IsAncestor(ctx, actor.ID, target.ID)
	if err != nil {
		return models.LevelNone, actor, target, err
	}
	if isAncestor {
		return models.LevelFull, actor, target, nil
	}

	// Rule 5: target is a direct parent of actor
	if (actor.FatherID != nil && *actor.FatherID == target.ID) ||
		(actor.MotherID != nil && *actor.MotherID == target.ID) {
		return models.LevelFull, actor, target, nil
	}

	// Rule 6: siblings
	siblings, err := s.relationship.AreSiblings(ctx, actor.ID, target.ID)
	if err != nil {
		return models.LevelNone, actor, target, err
	}
	if siblings {
		return models.LevelFull, actor, target, nil
	}

	// Rule 7: current spouses
	spouses, err := s.relationship.AreSpouses(ctx, actor.ID, target.ID)
	if err != nil {
		return models.LevelNone, actor, target, err
	}
	if spouses {
		return models.LevelFull, actor, target, nil
	}

	// Rule 8: active branch moderator grant covering the target. Grant
	// scope is the root and every descendant at any depth, so coverage
	// uses the uncapped branch walk rather than the generation-bounded
	// ancestor check.
	roots, err := s.grants.ActiveRoots(ctx, actor.ID)
	if err != nil {
		return models.LevelNone, actor, target, err
	}
	for _, root := range roots {
		covers, err := s.relationship.InBranch(ctx, root, target.ID)
		if err != nil {
			return models.LevelNone, actor, target, err
		}
		if covers {
			return models.LevelFull, actor, target, nil
		}
	}

	// Rule 9: suggestion block, checked only after every full rule
	blocked, err := s.grants.IsBlocked(ctx, actor.ID)
	if err != nil {
		return models.LevelNone, actor, target, err
	}
	if blocked {
		return models.LevelBlocked, actor, target, nil
	}

	// Rule 10: everyone else may suggest
	return models.LevelSuggest, actor, target, nil
}

// IsAdmin reports whether the actor exists and carries an admin role.
func (s *PermissionService) IsAdmin(ctx context.Context, actorID uuid.UUID) (bool, error) {
	actor, err := s.persons.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return actor.Role.IsAdmin(), nil
}
