package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qefaraki/lineage/common/apperr"
	"github.com/qefaraki/lineage/common/cache"
	"github.com/qefaraki/lineage/common/logger"
	"github.com/qefaraki/lineage/common/models"
)

// maxGenerations bounds ancestor/descendant walks. Ten generations is
// deeper than any honest chain the tree holds; past that we are walking
// corrupted data.
const maxGenerations = 10

// RelationshipService answers ancestor/descendant/sibling/spouse queries
// over the parent-pointer and marriage graph. Traversal tolerates
// corrupted cyclic parent references: a visited-set check turns a cycle
// into a bounded, deterministic result instead of an infinite loop.
type RelationshipService struct {
	persons   PersonStore
	marriages MarriageStore
	cache     cache.Cache
	log       *logger.Logger
}

// NewRelationshipService creates a new relationship service. cache may
// be nil, in which case every ref lookup hits the store.
func NewRelationshipService(persons PersonStore, marriages MarriageStore, c cache.Cache, log *logger.Logger) *RelationshipService {
	return &RelationshipService{
		persons:   persons,
		marriages: marriages,
		cache:     c,
		log:       log,
	}
}

// IsAncestor reports whether a is an ancestor of b, walking parent
// pointers up from b for at most maxGenerations. A node already on the
// walk is never revisited, so a self-referential or mutual parent
// pointer terminates instead of looping. IsAncestor(p, p) stays false
// even when p is its own recorded father.
func (s *RelationshipService) IsAncestor(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}

	visited := map[uuid.UUID]bool{b: true}
	frontier := []uuid.UUID{b}

	for depth := 0; depth < maxGenerations && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, id := range frontier {
			ref, err := s.ref(ctx, id)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					continue
				}
				return false, err
			}
			for _, parent := range []*uuid.UUID{ref.FatherID, ref.MotherID} {
				if parent == nil || visited[*parent] {
					continue
				}
				if *parent == a {
					return true, nil
				}
				visited[*parent] = true
				next = append(next, *parent)
			}
		}
		frontier = next
	}

	return false, nil
}

// IsDescendant reports whether a is a descendant of b.
func (s *RelationshipService) IsDescendant(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.IsAncestor(ctx, b, a)
}

// AllDescendants returns the set of every descendant of root, walking
// children edges to unbounded depth. Soft-deleted persons are excluded.
// Used for branch-moderator scope, so depth must not be capped: a grant
// covers the whole branch however deep it grows.
func (s *RelationshipService) AllDescendants(ctx context.Context, root uuid.UUID) (map[uuid.UUID]bool, error) {
	descendants := make(map[uuid.UUID]bool)
	visited := map[uuid.UUID]bool{root: true}
	frontier := []uuid.UUID{root}

	for len(frontier) > 0 {
		var next []uuid.UUID
		for _, id := range frontier {
			children, err := s.persons.ListChildren(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("list children of %s: %w", id, err)
			}
			for _, child := range children {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				descendants[child.ID] = true
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	return descendants, nil
}

// InBranch reports whether member is root itself or a descendant of
// root, walking parent pointers upward with no generation cap. Grant
// scope covers a branch at any depth, so unlike IsAncestor this walk
// is limited only by the visited set.
func (s *RelationshipService) InBranch(ctx context.Context, root, member uuid.UUID) (bool, error) {
	if root == member {
		return true, nil
	}

	visited := map[uuid.UUID]bool{member: true}
	frontier := []uuid.UUID{member}

	for len(frontier) > 0 {
		var next []uuid.UUID
		for _, id := range frontier {
			ref, err := s.ref(ctx, id)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					continue
				}
				return false, err
			}
			for _, parent := range []*uuid.UUID{ref.FatherID, ref.MotherID} {
				if parent == nil || visited[*parent] {
					continue
				}
				if *parent == root {
					return true, nil
				}
				visited[*parent] = true
				next = append(next, *parent)
			}
		}
		frontier = next
	}

	return false, nil
}

// AreSiblings reports whether a and b share a non-null parent.
func (s *RelationshipService) AreSiblings(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}

	refA, err := s.ref(ctx, a)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	refB, err := s.ref(ctx, b)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if refA.FatherID != nil && refB.FatherID != nil && *refA.FatherID == *refB.FatherID {
		return true, nil
	}
	if refA.MotherID != nil && refB.MotherID != nil && *refA.MotherID == *refB.MotherID {
		return true, nil
	}
	return false, nil
}

// AreSpouses reports whether a current marriage exists between a and b.
func (s *RelationshipService) AreSpouses(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.marriages.CurrentBetween(ctx, a, b)
}

// ref fetches the structure projection of a person, memoized through
// the cache when one is configured. Soft-deleted rows read as NotFound
// so traversal skips them.
func (s *RelationshipService) ref(ctx context.Context, id uuid.UUID) (*models.PersonRef, error) {
	key := "ref:" + id.String()

	if s.cache != nil {
		var cached models.PersonRef
		if ok, _ := cache.GetJSON(ctx, s.cache, key, &cached); ok {
			if cached.Deleted {
				return nil, apperr.ErrNotFound
			}
			return &cached, nil
		}
	}

	ref, err := s.persons.GetRef(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, ref, 30*time.Second); err != nil {
			s.log.Debug("ref cache write failed", "person_id", id, "error", err)
		}
	}

	if ref.Deleted {
		return nil, apperr.ErrNotFound
	}
	return ref, nil
}

// InvalidateRef drops a person's cached structure row after a
// structural mutation.
func (s *RelationshipService) InvalidateRef(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "ref:"+id.String()); err != nil {
		s.log.Debug("ref cache invalidate failed", "person_id", id, "error", err)
	}
}
