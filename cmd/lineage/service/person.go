package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/queue"
)

// PersonService handles node lifecycle: creation, bulk child creation,
// soft deletion and the marriage edges between nodes. Field edits on
// existing nodes go through MutationService instead.
type PersonService struct {
	persons      PersonStore
	marriages    MarriageStore
	relationship *RelationshipService
	permissions  *PermissionService
	queue        queue.Queue
	log          *logger.Logger
}

// NewPersonService creates a new person service
func NewPersonService(persons PersonStore, marriages MarriageStore, relationship *RelationshipService, permissions *PermissionService, q queue.Queue, log *logger.Logger) *PersonService {
	return &PersonService{
		persons:      persons,
		marriages:    marriages,
		relationship: relationship,
		permissions:  permissions,
		queue:        q,
		log:          log,
	}
}

// Get returns a person by id. Soft-deleted rows read as not found.
func (s *PersonService) Get(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	return s.persons.GetByID(ctx, id)
}

// CreateInput describes a new person node.
type CreateInput struct {
	ActorID  uuid.UUID
	Name     string
	Gender   models.Gender
	FatherID *uuid.UUID
	MotherID *uuid.UUID
	Status   models.LifecycleStatus
}

// Create adds a single node. The actor needs full access over the
// father (or, for a fatherless node, an admin role). Parent references
// are checked for existence and gender before anything is written, and
// generation is derived from the father when present.
func (s *PersonService) Create(ctx context.Context, in CreateInput) (*models.Person, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", apperr.ErrValidation)
	}
	if in.Gender != models.GenderMale && in.Gender != models.GenderFemale {
		return nil, fmt.Errorf("unknown gender %q: %w", in.Gender, apperr.ErrValidation)
	}
	if in.Status == "" {
		in.Status = models.StatusAlive
	}

	generation := 1
	if in.FatherID != nil {
		father, err := s.persons.GetByID(ctx, *in.FatherID)
		if err != nil {
			return nil, fmt.Errorf("father: %w", err)
		}
		if father.Gender != models.GenderMale {
			return nil, fmt.Errorf("father reference must be male: %w", apperr.ErrValidation)
		}
		generation = father.Generation + 1

		level, err := s.permissions.Evaluate(ctx, in.ActorID, father.ID)
		if err != nil {
			return nil, err
		}
		if level != models.LevelFull {
			return nil, apperr.ErrUnauthorized
		}
	} else {
		isAdmin, err := s.permissions.IsAdmin(ctx, in.ActorID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, apperr.ErrUnauthorized
		}
	}
	if in.MotherID != nil {
		mother, err := s.persons.GetByID(ctx, *in.MotherID)
		if err != nil {
			return nil, fmt.Errorf("mother: %w", err)
		}
		if mother.Gender != models.GenderFemale {
			return nil, fmt.Errorf("mother reference must be female: %w", apperr.ErrValidation)
		}
	}

	now := time.Now().UTC()
	p := &models.Person{
		ID:         uuid.New(),
		Name:       in.Name,
		Gender:     in.Gender,
		Generation: generation,
		FatherID:   in.FatherID,
		MotherID:   in.MotherID,
		Status:     in.Status,
		Role:       models.RoleNone,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		UpdatedBy:  &in.ActorID,
	}
	entry := &models.AuditEntry{
		ActorID:  in.ActorID,
		Action:   models.ActionCreate,
		Severity: models.SeverityMedium,
	}
	if err := s.persons.Create(ctx, p, entry); err != nil {
		return nil, err
	}

	s.log.WithActor(in.ActorID.String()).Info("person created", "person_id", p.ID, "generation", p.Generation)
	if p.FatherID != nil {
		s.triggerLayout(ctx, *p.FatherID)
	}
	return p, nil
}

// ChildInput is one child in a bulk creation batch.
type ChildInput struct {
	Name   string
	Gender models.Gender
	Status models.LifecycleStatus
}

// CreateChildren adds a batch of children under one father. Sibling
// order is assigned contiguously after the father's existing children,
// under a per-father advisory lock so concurrent batches serialize
// instead of interleaving. Descent follows the father, so only a male
// node can take a batch.
func (s *PersonService) CreateChildren(ctx context.Context, actorID, fatherID uuid.UUID, motherID *uuid.UUID, inputs []ChildInput) ([]*models.Person, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("empty batch: %w", apperr.ErrValidation)
	}

	father, err := s.persons.GetByID(ctx, fatherID)
	if err != nil {
		return nil, fmt.Errorf("father: %w", err)
	}
	if father.Gender != models.GenderMale {
		return nil, fmt.Errorf("children attach to a male node: %w", apperr.ErrValidation)
	}
	if motherID != nil {
		mother, err := s.persons.GetByID(ctx, *motherID)
		if err != nil {
			return nil, fmt.Errorf("mother: %w", err)
		}
		if mother.Gender != models.GenderFemale {
			return nil, fmt.Errorf("mother reference must be female: %w", apperr.ErrValidation)
		}
	}

	level, err := s.permissions.Evaluate(ctx, actorID, fatherID)
	if err != nil {
		return nil, err
	}
	if level != models.LevelFull {
		return nil, apperr.ErrUnauthorized
	}

	now := time.Now().UTC()
	children := make([]*models.Person, 0, len(inputs))
	for i, in := range inputs {
		if in.Name == "" {
			return nil, fmt.Errorf("child %d: name is required: %w", i, apperr.ErrValidation)
		}
		if in.Gender != models.GenderMale && in.Gender != models.GenderFemale {
			return nil, fmt.Errorf("child %d: unknown gender %q: %w", i, in.Gender, apperr.ErrValidation)
		}
		status := in.Status
		if status == "" {
			status = models.StatusAlive
		}
		children = append(children, &models.Person{
			ID:         uuid.New(),
			Name:       in.Name,
			Gender:     in.Gender,
			Generation: father.Generation + 1,
			FatherID:   &father.ID,
			MotherID:   motherID,
			Status:     status,
			Role:       models.RoleNone,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
			UpdatedBy:  &actorID,
		})
	}

	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionBulkCreate,
		Severity: models.SeverityMedium,
	}
	if err := s.persons.CreateChildren(ctx, fatherID, children, entry); err != nil {
		return nil, err
	}

	s.log.WithActor(actorID.String()).WithPerson(fatherID.String()).Info("children created", "count", len(children))
	s.triggerLayout(ctx, fatherID)
	return children, nil
}

// Delete soft-deletes a node. Admin only: removal hides a person from
// every relative's view of the tree, which no graph relation justifies
// on its own.
func (s *PersonService) Delete(ctx context.Context, actorID, personID uuid.UUID) error {
	isAdmin, err := s.permissions.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return apperr.ErrUnauthorized
	}

	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionDelete,
		Severity: models.SeverityHigh,
	}
	if err := s.persons.SoftDelete(ctx, personID, entry); err != nil {
		return err
	}

	s.relationship.InvalidateRef(ctx, personID)
	s.triggerLayout(ctx, personID)
	return nil
}

// Relation answers the four relationship queries between two nodes.
type Relation struct {
	Ancestor   bool `json:"ancestor"`
	Descendant bool `json:"descendant"`
	Siblings   bool `json:"siblings"`
	Spouses    bool `json:"spouses"`
}

// Relate computes the relation of a to b.
func (s *PersonService) Relate(ctx context.Context, a, b uuid.UUID) (*Relation, error) {
	var rel Relation
	var err error
	if rel.Ancestor, err = s.relationship.IsAncestor(ctx, a, b); err != nil {
		return nil, err
	}
	if rel.Descendant, err = s.relationship.IsDescendant(ctx, a, b); err != nil {
		return nil, err
	}
	if rel.Siblings, err = s.relationship.AreSiblings(ctx, a, b); err != nil {
		return nil, err
	}
	if rel.Spouses, err = s.relationship.AreSpouses(ctx, a, b); err != nil {
		return nil, err
	}
	return &rel, nil
}

// CreateMarriage records a current marriage between a husband and a
// wife. The actor needs full access over at least one of the partners.
// A partner with an existing current marriage to someone else is
// rejected inside the transaction.
func (s *PersonService) CreateMarriage(ctx context.Context, actorID, husbandID, wifeID uuid.UUID) (*models.Marriage, error) {
	husband, err := s.persons.GetByID(ctx, husbandID)
	if err != nil {
		return nil, fmt.Errorf("husband: %w", err)
	}
	if husband.Gender != models.GenderMale {
		return nil, fmt.Errorf("husband must be male: %w", apperr.ErrValidation)
	}
	wife, err := s.persons.GetByID(ctx, wifeID)
	if err != nil {
		return nil, fmt.Errorf("wife: %w", err)
	}
	if wife.Gender != models.GenderFemale {
		return nil, fmt.Errorf("wife must be female: %w", apperr.ErrValidation)
	}

	if err := s.authorizeEither(ctx, actorID, husbandID, wifeID); err != nil {
		return nil, err
	}

	m := &models.Marriage{
		ID:        uuid.New(),
		HusbandID: husbandID,
		WifeID:    wifeID,
		Status:    models.MarriageCurrent,
		CreatedAt: time.Now().UTC(),
	}
	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionMarriageCreate,
		Severity: models.SeverityLow,
	}
	if err := s.marriages.Create(ctx, m, entry); err != nil {
		return nil, err
	}
	return m, nil
}

// EndMarriage transitions a current marriage to past. Ending an already
// past marriage reads as not found, which keeps the call idempotent for
// retries.
func (s *PersonService) EndMarriage(ctx context.Context, actorID, marriageID uuid.UUID) error {
	m, err := s.marriages.GetByID(ctx, marriageID)
	if err != nil {
		return err
	}
	if err := s.authorizeEither(ctx, actorID, m.HusbandID, m.WifeID); err != nil {
		return err
	}

	entry := &models.AuditEntry{
		ActorID:  actorID,
		Action:   models.ActionMarriageEnd,
		Severity: models.SeverityLow,
	}
	return s.marriages.End(ctx, marriageID, entry)
}

func (s *PersonService) authorizeEither(ctx context.Context, actorID uuid.UUID, subjects ...uuid.UUID) error {
	for _, subject := range subjects {
		level, err := s.permissions.Evaluate(ctx, actorID, subject)
		if err != nil {
			return err
		}
		if level == models.LevelFull {
			return nil
		}
	}
	return apperr.ErrUnauthorized
}

func (s *PersonService) triggerLayout(ctx context.Context, personID uuid.UUID) {
	if err := s.queue.Publish(ctx, queue.TopicLayoutRecalc, personID.String(), []byte(personID.String())); err != nil {
		s.log.Warn("layout recalc enqueue failed", "person_id", personID, "error", err)
	}
}
