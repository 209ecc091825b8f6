package models

// PermissionLevel is the outcome of evaluating an (actor, target) pair.
type PermissionLevel string

const (
	// LevelFull allows direct guarded mutation.
	LevelFull PermissionLevel = "full"
	// LevelSuggest allows proposing single-field changes for review.
	LevelSuggest PermissionLevel = "suggest"
	// LevelBlocked denies even suggestions.
	LevelBlocked PermissionLevel = "blocked"
	// LevelNone is the level for missing actors or targets.
	LevelNone PermissionLevel = "none"
)

// Rank orders levels for policy comparison: a policy hook may only move
// the level down this ordering, never up.
func (l PermissionLevel) Rank() int {
	switch l {
	case LevelFull:
		return 3
	case LevelSuggest:
		return 2
	case LevelBlocked:
		return 1
	default:
		return 0
	}
}

// CanSuggest reports whether the level permits creating a suggestion.
func (l PermissionLevel) CanSuggest() bool {
	return l == LevelFull || l == LevelSuggest
}
