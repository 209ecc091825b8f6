package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the caller-visible outcome taxonomy.
// Services wrap these with fmt.Errorf("...: %w", err) so handlers can
// classify with errors.Is while logs keep the full chain.
var (
	// ErrUnauthorized means the actor's permission level is insufficient.
	// Deliberately carries no detail about why.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers absent and soft-deleted records alike.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed means a terminal suggestion transition was retried.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrAlreadyReverted means a second revert was attempted on an audit entry.
	ErrAlreadyReverted = errors.New("already reverted")

	// ErrValidation covers malformed input that is not a single bad
	// field name: empty change sets, unparseable values, impossible
	// state combinations.
	ErrValidation = errors.New("validation failed")

	// ErrNotRevertable means the audit entry's action has no inverse,
	// such as a revert entry itself.
	ErrNotRevertable = errors.New("entry cannot be reverted")
)

// VersionConflictError is returned when a guarded mutation's expected
// version does not match the stored one. It carries both so the caller
// can refetch-and-retry or surface a human-readable conflict.
type VersionConflictError struct {
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, found %d", e.Expected, e.Actual)
}

// IsVersionConflict reports whether err wraps a VersionConflictError.
func IsVersionConflict(err error) bool {
	var vc *VersionConflictError
	return errors.As(err, &vc)
}

// InvalidFieldError is returned when a mutation names a field outside
// the editable-field allow-list.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field: %q", e.Field)
}

// IsInvalidField reports whether err wraps an InvalidFieldError.
func IsInvalidField(err error) bool {
	var inv *InvalidFieldError
	return errors.As(err, &inv)
}

// CycleError reports a corrupted parent reference found by the integrity
// diagnostic. Normal traversal truncates cycles silently; this error only
// surfaces from the explicit integrity query.
type CycleError struct {
	PersonIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("parent cycle detected involving %d person(s)", len(e.PersonIDs))
}
