package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/models"
	"github.com/qefaraki/lineage/common/repository"
	"github.com/qefaraki/lineage/common/snapshot"
)

// memStore is an in-memory stand-in for the pgx repositories. One
// mutex plays the role of the database transaction: ApplyGuarded holds
// it across the version compare, the field apply, the audit append and
// any stamps, so the concurrency tests see the same all-or-nothing
// behavior as the real store.
type memStore struct {
	mu          sync.Mutex
	persons     map[uuid.UUID]*models.Person
	marriages   map[uuid.UUID]*models.Marriage
	grants      map[uuid.UUID]*models.BranchModeratorGrant
	blocks      map[uuid.UUID]*models.SuggestionBlock // by person id
	suggestions map[uuid.UUID]*models.EditSuggestion
	audits      map[uuid.UUID]*models.AuditEntry
	auditOrder  []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		persons:     make(map[uuid.UUID]*models.Person),
		marriages:   make(map[uuid.UUID]*models.Marriage),
		grants:      make(map[uuid.UUID]*models.BranchModeratorGrant),
		blocks:      make(map[uuid.UUID]*models.SuggestionBlock),
		suggestions: make(map[uuid.UUID]*models.EditSuggestion),
		audits:      make(map[uuid.UUID]*models.AuditEntry),
	}
}

func clonePerson(p *models.Person) *models.Person {
	cp := *p
	return &cp
}

func (m *memStore) put(p *models.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[p.ID] = clonePerson(p)
}

// --- PersonStore ---

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	return clonePerson(p), nil
}

func ref(p *models.Person) *models.PersonRef {
	return &models.PersonRef{
		ID:           p.ID,
		FatherID:     p.FatherID,
		MotherID:     p.MotherID,
		Gender:       p.Gender,
		Generation:   p.Generation,
		SiblingOrder: p.SiblingOrder,
		Deleted:      p.DeletedAt != nil,
	}
}

func (m *memStore) GetRef(ctx context.Context, id uuid.UUID) (*models.PersonRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return ref(p), nil
}

func (m *memStore) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.PersonRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PersonRef
	for _, p := range m.persons {
		if p.DeletedAt != nil {
			continue
		}
		if (p.FatherID != nil && *p.FatherID == parentID) || (p.MotherID != nil && *p.MotherID == parentID) {
			out = append(out, ref(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiblingOrder < out[j].SiblingOrder })
	return out, nil
}

func (m *memStore) ListStructure(ctx context.Context) ([]*models.PersonRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PersonRef, 0, len(m.persons))
	for _, p := range m.persons {
		out = append(out, ref(p))
	}
	return out, nil
}

func (m *memStore) Create(ctx context.Context, p *models.Person, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[p.ID] = clonePerson(p)
	newData, err := snapshot.Marshal(p)
	if err != nil {
		return err
	}
	entry.PersonID = p.ID
	entry.NewData = newData
	v := p.Version
	entry.ResultVersion = &v
	m.appendAudit(entry)
	return nil
}

func (m *memStore) CreateChildren(ctx context.Context, parentID uuid.UUID, children []*models.Person, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 0
	for _, p := range m.persons {
		if p.DeletedAt == nil && p.FatherID != nil && *p.FatherID == parentID && p.SiblingOrder > next {
			next = p.SiblingOrder
		}
	}
	for i, child := range children {
		child.SiblingOrder = next + i + 1
		m.persons[child.ID] = clonePerson(child)
	}
	entry.PersonID = parentID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) SetRole(ctx context.Context, id uuid.UUID, role models.Role, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok || p.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	p.Role = role
	entry.PersonID = id
	m.appendAudit(entry)
	return nil
}

func (m *memStore) SoftDelete(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok || p.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	oldData, err := snapshot.Marshal(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	entry.PersonID = id
	entry.OldData = oldData
	m.appendAudit(entry)
	return nil
}

// --- MutationStore ---

func (m *memStore) ApplyGuarded(ctx context.Context, req *repository.ApplyRequest) (*models.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.persons[req.TargetID]
	if !ok || p.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	if p.Version != req.ExpectedVersion {
		return nil, &apperr.VersionConflictError{Expected: req.ExpectedVersion, Actual: p.Version}
	}

	oldData, err := snapshot.Marshal(p)
	if err != nil {
		return nil, err
	}

	updated := clonePerson(p)
	if err := req.Changes.Apply(updated); err != nil {
		return nil, err
	}
	updated.Version = p.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	updated.UpdatedBy = &req.Entry.ActorID

	newData, err := snapshot.Marshal(updated)
	if err != nil {
		return nil, err
	}
	changedFields, err := snapshot.ChangedFields(oldData, newData)
	if err != nil {
		return nil, err
	}

	if req.Decide != nil {
		sg, ok := m.suggestions[req.Decide.SuggestionID]
		if !ok {
			return nil, apperr.ErrNotFound
		}
		if sg.Status != models.SuggestionPending {
			return nil, apperr.ErrAlreadyProcessed
		}
	}
	if req.StampReverted != nil {
		target, ok := m.audits[req.StampReverted.EntryID]
		if !ok {
			return nil, apperr.ErrNotFound
		}
		if target.RevertedAt != nil {
			return nil, apperr.ErrAlreadyReverted
		}
	}

	// Past the guards; commit everything.
	m.persons[updated.ID] = updated

	req.Entry.PersonID = updated.ID
	req.Entry.OldData = oldData
	req.Entry.NewData = newData
	req.Entry.ChangedFields = changedFields
	v := updated.Version
	req.Entry.ResultVersion = &v

	if req.Decide != nil {
		sg := m.suggestions[req.Decide.SuggestionID]
		now := time.Now().UTC()
		sg.Status = req.Decide.Status
		sg.ReviewedBy = &req.Decide.ReviewerID
		sg.ReviewedAt = &now
		req.Entry.SuggestionID = &sg.ID
	}
	m.appendAudit(req.Entry)
	if req.StampReverted != nil {
		target := m.audits[req.StampReverted.EntryID]
		now := time.Now().UTC()
		target.RevertedAt = &now
		actor := req.StampReverted.ActorID
		target.RevertedBy = &actor
	}

	return clonePerson(updated), nil
}

// --- MarriageStore ---

func (m *memStore) GetMarriage(ctx context.Context, id uuid.UUID) (*models.Marriage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.marriages[id]
	if !ok || mr.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	cp := *mr
	return &cp, nil
}

func (m *memStore) CurrentBetween(ctx context.Context, a, b uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mr := range m.marriages {
		if mr.DeletedAt != nil || mr.Status != models.MarriageCurrent {
			continue
		}
		if (mr.HusbandID == a && mr.WifeID == b) || (mr.HusbandID == b && mr.WifeID == a) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateMarriage(ctx context.Context, mr *models.Marriage, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.marriages {
		if existing.DeletedAt != nil || existing.Status != models.MarriageCurrent {
			continue
		}
		if existing.HusbandID == mr.HusbandID || existing.WifeID == mr.WifeID {
			return apperr.ErrValidation
		}
	}
	cp := *mr
	m.marriages[mr.ID] = &cp
	entry.PersonID = mr.HusbandID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) EndMarriage(ctx context.Context, id uuid.UUID, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.marriages[id]
	if !ok || mr.DeletedAt != nil || mr.Status != models.MarriageCurrent {
		return apperr.ErrNotFound
	}
	mr.Status = models.MarriagePast
	entry.PersonID = mr.HusbandID
	m.appendAudit(entry)
	return nil
}

// --- GrantStore ---

func (m *memStore) CreateGrant(ctx context.Context, g *models.BranchModeratorGrant, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.grants[g.ID] = &cp
	entry.PersonID = g.RootID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) RevokeGrant(ctx context.Context, grantID, revokedBy uuid.UUID, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[grantID]
	if !ok || !g.Active {
		return apperr.ErrNotFound
	}
	now := time.Now().UTC()
	g.Active = false
	g.RevokedBy = &revokedBy
	g.RevokedAt = &now
	entry.PersonID = g.RootID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) ActiveRoots(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roots []uuid.UUID
	for _, g := range m.grants {
		if g.Active && g.ActorID == actorID {
			roots = append(roots, g.RootID)
		}
	}
	return roots, nil
}

func (m *memStore) CreateBlock(ctx context.Context, b *models.SuggestionBlock, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blocks[b.PersonID]; !exists {
		cp := *b
		m.blocks[b.PersonID] = &cp
	}
	entry.PersonID = b.PersonID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) DeleteBlock(ctx context.Context, personID uuid.UUID, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blocks, personID)
	entry.PersonID = personID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) IsBlocked(ctx context.Context, personID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, blocked := m.blocks[personID]
	return blocked, nil
}

// --- SuggestionStore ---

func (m *memStore) CreateSuggestion(ctx context.Context, s *models.EditSuggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.suggestions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSuggestion(ctx context.Context, id uuid.UUID) (*models.EditSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSuggestions(ctx context.Context, status models.SuggestionStatus, personID *uuid.UUID, limit int) ([]*models.EditSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EditSuggestion
	for _, s := range m.suggestions {
		if status != "" && s.Status != status {
			continue
		}
		if personID != nil && s.PersonID != *personID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RejectSuggestion(ctx context.Context, id, reviewerID uuid.UUID, reason string, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if s.Status != models.SuggestionPending {
		return apperr.ErrAlreadyProcessed
	}
	now := time.Now().UTC()
	s.Status = models.SuggestionRejected
	s.ReviewedBy = &reviewerID
	s.ReviewedAt = &now
	s.RejectReason = &reason
	entry.PersonID = s.PersonID
	entry.SuggestionID = &s.ID
	m.appendAudit(entry)
	return nil
}

func (m *memStore) CancelSuggestion(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if s.Status != models.SuggestionPending {
		return apperr.ErrAlreadyProcessed
	}
	s.Status = models.SuggestionCancelled
	return nil
}

// --- AuditStore ---

func (m *memStore) GetAudit(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.audits[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) ListAuditByPerson(ctx context.Context, personID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditEntry
	for i := len(m.auditOrder) - 1; i >= 0; i-- {
		e := m.audits[m.auditOrder[i]]
		if e.PersonID != personID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) InsertAudit(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendAudit(entry)
	return nil
}

// appendAudit fills defaults the way the repository does. Caller holds mu.
func (m *memStore) appendAudit(entry *models.AuditEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Severity == 0 {
		entry.Severity = models.SeverityLow
	}
	cp := *entry
	m.audits[entry.ID] = &cp
	m.auditOrder = append(m.auditOrder, entry.ID)
}
