package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrTemplateNotFound = fmt.Errorf("%w: template", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)

	// Resolution errors
	ErrAliasConflict    = errors.New("alias claimed by multiple canonical IDs")
	ErrUnmappedSubjects = errors.New("subject IDs missing from ID map")
	ErrSessionEmpty     = errors.New("session filter matched no rows")
	ErrDuplicateIDs     = errors.New("duplicate participant IDs")
	ErrNoTasksMatched   = errors.New("no survey item columns matched the selected templates")

	// Validation errors
	ErrValueRejected = errors.New("value outside allowed levels")
)

// NewNotFoundError builds a not-found error with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewAliasConflictError names both canonicals competing for one alias
func NewAliasConflictError(alias, first, second string) error {
	return fmt.Errorf("%w: alias %q maps to both %q and %q", ErrAliasConflict, alias, first, second)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsFatalConversionError(err error) bool {
	return errors.Is(err, ErrAliasConflict) ||
		errors.Is(err, ErrUnmappedSubjects) ||
		errors.Is(err, ErrSessionEmpty) ||
		errors.Is(err, ErrDuplicateIDs) ||
		errors.Is(err, ErrNoTasksMatched) ||
		errors.Is(err, ErrValueRejected)
}
