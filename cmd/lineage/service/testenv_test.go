package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/notify"
	"github.com/qefaraki/lineage/common/queue"
)

// Interface adapters: memStore carries every fake in one struct, but
// the store interfaces overlap on method names (GetByID, Create), so
// the marriage, suggestion and audit views get thin wrappers.

type memMarriages struct{ s *memStore }

func (m memMarriages) GetByID(ctx context.Context, id uuid.UUID) (*models.Marriage, error) {
	return m.s.GetMarriage(ctx, id)
}
func (m memMarriages) CurrentBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return m.s.CurrentBetween(ctx, a, b)
}
func (m memMarriages) Create(ctx context.Context, mr *models.Marriage, entry *models.AuditEntry) error {
	return m.s.CreateMarriage(ctx, mr, entry)
}
func (m memMarriages) End(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error {
	return m.s.EndMarriage(ctx, id, entry)
}

type memSuggestions struct{ s *memStore }

func (m memSuggestions) Create(ctx context.Context, sg *models.EditSuggestion) error {
	return m.s.CreateSuggestion(ctx, sg)
}
func (m memSuggestions) GetByID(ctx context.Context, id uuid.UUID) (*models.EditSuggestion, error) {
	return m.s.GetSuggestion(ctx, id)
}
func (m memSuggestions) List(ctx context.Context, status models.SuggestionStatus, personID *uuid.UUID, limit int) ([]*models.EditSuggestion, error) {
	return m.s.ListSuggestions(ctx, status, personID, limit)
}
func (m memSuggestions) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, entry *models.AuditEntry) error {
	return m.s.RejectSuggestion(ctx, id, reviewerID, reason, entry)
}
func (m memSuggestions) Cancel(ctx context.Context, id uuid.UUID) error {
	return m.s.CancelSuggestion(ctx, id)
}

type memAudits struct{ s *memStore }

func (m memAudits) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	return m.s.GetAudit(ctx, id)
}
func (m memAudits) ListByPerson(ctx context.Context, personID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	return m.s.ListAuditByPerson(ctx, personID, limit)
}
func (m memAudits) Insert(ctx context.Context, entry *models.AuditEntry) error {
	return m.s.InsertAudit(ctx, entry)
}

// testEnv wires every service over one shared memStore.
type testEnv struct {
	store        *memStore
	relationship *RelationshipService
	permissions  *PermissionService
	mutations    *MutationService
	persons      *PersonService
	suggestions  *SuggestionService
	audits       *AuditService
	admin        *AdminService
	integrity    *IntegrityService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	log := logger.New("error", "console")
	q := queue.NewMemoryQueue(log)

	relationship := NewRelationshipService(store, memMarriages{store}, nil, log)
	permissions := NewPermissionService(store, relationship, store, nil, log)
	mutations := NewMutationService(store, store, permissions, relationship, q, log)
	persons := NewPersonService(store, memMarriages{store}, relationship, permissions, q, log)
	suggestions := NewSuggestionService(memSuggestions{store}, store, mutations, permissions, notify.Noop{}, log)
	audits := NewAuditService(memAudits{store}, mutations, permissions, notify.Noop{}, log)
	admin := NewAdminService(store, store, permissions, log)
	integrity := NewIntegrityService(store, log)

	return &testEnv{
		store:        store,
		relationship: relationship,
		permissions:  permissions,
		mutations:    mutations,
		persons:      persons,
		suggestions:  suggestions,
		audits:       audits,
		admin:        admin,
		integrity:    integrity,
	}
}

// addPerson seeds a person directly into the store.
func (e *testEnv) addPerson(name string, gender models.Gender, generation int, father, mother *uuid.UUID) *models.Person {
	p := &models.Person{
		ID:         uuid.New(),
		Name:       name,
		Gender:     gender,
		Generation: generation,
		FatherID:   father,
		MotherID:   mother,
		Status:     models.StatusAlive,
		Role:       models.RoleNone,
		Version:    1,
	}
	e.store.put(p)
	return p
}

// addAdmin seeds an admin with no graph relations.
func (e *testEnv) addAdmin(name string) *models.Person {
	p := e.addPerson(name, models.GenderMale, 1, nil, nil)
	p.Role = models.RoleAdmin
	e.store.put(p)
	return p
}

// addMarriage seeds a current marriage.
func (e *testEnv) addMarriage(husband, wife uuid.UUID) *models.Marriage {
	m := &models.Marriage{
		ID:        uuid.New(),
		HusbandID: husband,
		WifeID:    wife,
		Status:    models.MarriageCurrent,
	}
	e.store.marriages[m.ID] = m
	return m
}
