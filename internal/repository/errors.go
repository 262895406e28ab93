package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHarvestRequest rejects harvest parameters before any work starts.
	ErrInvalidHarvestRequest = errors.New("invalid harvest request")
	// ErrBrowserInit means the render surface could not be started.
	ErrBrowserInit = errors.New("browser initialization failed")
	// ErrNavigationFailed means a page did not load within its budget.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrExtractionFailed means a field could not be read from a rendered page.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrValidationFailed means deep site inspection could not complete.
	ErrValidationFailed = errors.New("site validation failed")
	// ErrElementNotFound is returned when a selector has no match at the index.
	ErrElementNotFound = errors.New("element not found")
	// ErrDuplicate is matched by every DuplicateConstraintError.
	ErrDuplicate = errors.New("duplicate record")
	ErrNotFound  = errors.New("not found")
	// ErrQueueEmpty is returned by Pop when no job is waiting.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrCacheMiss is returned by caches for unknown keys.
	ErrCacheMiss = errors.New("cache miss")
)

// DuplicateConstraintError is raised by a record store when a uniqueness
// constraint rejects a write.
type DuplicateConstraintError struct {
	Field string
	Err   error
}

func (e *DuplicateConstraintError) Error() string {
	if e.Field == "" {
		return "duplicate record"
	}
	return fmt.Sprintf("duplicate record on field %q", e.Field)
}

func (e *DuplicateConstraintError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDuplicate) hold for every constraint error.
func (e *DuplicateConstraintError) Is(target error) bool {
	return target == ErrDuplicate
}
