package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/logger"
)

// IntegrityService finds corrupted parent references. Traversal is
// cycle-tolerant and never reports them, so operators need an explicit
// diagnostic to locate the rows worth repairing.
type IntegrityService struct {
	persons PersonStore
	log     *logger.Logger
}

// NewIntegrityService creates a new integrity service
func NewIntegrityService(persons PersonStore, log *logger.Logger) *IntegrityService {
	return &IntegrityService{persons: persons, log: log}
}

// CycleKind classifies a detected parent cycle by its length.
type CycleKind string

const (
	CycleSelfReference   CycleKind = "self_reference"
	CycleMutualReference CycleKind = "mutual_reference"
	CycleLonger          CycleKind = "cycle"
)

// Cycle is one detected loop in the parent graph.
type Cycle struct {
	Kind      CycleKind   `json:"kind"`
	PersonIDs []uuid.UUID `json:"person_ids"`
}

// Err expresses the finding as a CycleError for logs and callers that
// treat a detection as a failure. Read-path traversal truncates cycles
// silently; only the diagnostic reports them.
func (c Cycle) Err() *apperr.CycleError {
	ids := make([]string, len(c.PersonIDs))
	for i, id := range c.PersonIDs {
		ids[i] = id.String()
	}
	return &apperr.CycleError{PersonIDs: ids}
}

// FindParentCycles scans the whole structure, soft-deleted rows
// included, and returns every distinct cycle reachable through father
// or mother pointers. Deleted rows stay in scope because a cycle
// through a deleted node still corrupts history and blocks repair.
func (s *IntegrityService) FindParentCycles(ctx context.Context) ([]Cycle, error) {
	refs, err := s.persons.ListStructure(ctx)
	if err != nil {
		return nil, err
	}

	parents := make(map[uuid.UUID][]uuid.UUID, len(refs))
	for _, ref := range refs {
		var ps []uuid.UUID
		if ref.FatherID != nil {
			ps = append(ps, *ref.FatherID)
		}
		if ref.MotherID != nil {
			ps = append(ps, *ref.MotherID)
		}
		parents[ref.ID] = ps
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the current DFS path
		black = 2 // finished, known cycle-free from here
	)
	color := make(map[uuid.UUID]int, len(parents))
	var cycles []Cycle
	seen := make(map[uuid.UUID]bool) // one report per cycle member set

	var path []uuid.UUID
	var visit func(id uuid.UUID)
	visit = func(id uuid.UUID) {
		color[id] = grey
		path = append(path, id)
		for _, parent := range parents[id] {
			if _, ok := parents[parent]; !ok {
				// dangling reference, not a cycle
				continue
			}
			switch color[parent] {
			case white:
				visit(parent)
			case grey:
				cycle := extractCycle(path, parent)
				if !seen[cycle[0]] {
					for _, member := range cycle {
						seen[member] = true
					}
					cycles = append(cycles, classify(cycle))
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
	}

	for _, ref := range refs {
		if color[ref.ID] == white {
			visit(ref.ID)
		}
	}

	for _, cyc := range cycles {
		s.log.Warn("parent cycle detected", "kind", cyc.Kind, "error", cyc.Err())
	}
	return cycles, nil
}

// extractCycle slices the DFS path from the repeated node to the top.
func extractCycle(path []uuid.UUID, start uuid.UUID) []uuid.UUID {
	for i, id := range path {
		if id == start {
			cycle := make([]uuid.UUID, len(path)-i)
			copy(cycle, path[i:])
			return cycle
		}
	}
	return []uuid.UUID{start}
}

func classify(members []uuid.UUID) Cycle {
	kind := CycleLonger
	switch len(members) {
	case 1:
		kind = CycleSelfReference
	case 2:
		kind = CycleMutualReference
	}
	return Cycle{Kind: kind, PersonIDs: members}
}
