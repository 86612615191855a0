/*
errors.go - Centralized error taxonomy for the workforce core

PURPOSE:
  All failure kinds the components return, in one place. The HTTP layer and
  any other caller branch on these with errors.Is / errors.As; nothing in the
  core ever swallows a rule violation or coerces it into a default success.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, inverted date ranges
  2. Not-found errors   - no calendar assigned, no record, no request
  3. Conflict errors    - overlapping requests, duplicate check-in/out
  4. Business errors    - insufficient balance, illegal status transition
  5. Authorization      - actor not permitted (RBAC itself lives outside,
                          but ownership/manager checks surface through here)

USAGE:
  Components wrap sentinels with structured errors:

    if errors.Is(err, core.ErrNotFound) {
        var nf *core.NotFoundError
        errors.As(err, &nf)
        ...
    }

SEE ALSO:
  - leave/errors.go: wraps ErrInsufficientBalance with ledger context
  - attendance/service.go: produces ConflictError, NotFoundError
  - store/sqlite/sqlite.go: maps UNIQUE violations onto ErrConflict
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrNotFound is returned when a referenced entity does not exist.
	// Includes "no calendar assigned" - the resolver never defaults to WORKING.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation collides with existing state:
	// overlapping leave requests, a second check-in on the same day, a second
	// check-out on the same record.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientBalance is returned when a leave request exceeds the
	// remaining allocation for its type and year.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidTransition is returned for an illegal request status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when the acting user may not perform the
	// operation (non-owner cancel, manager acting outside their reports).
	ErrUnauthorized = errors.New("not authorized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError names what the operation collided with.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError names the first rule the input broke.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err indicates a collision with existing state.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsClientError reports whether the caller caused err (as opposed to the
// store or an internal fault). Used by the HTTP layer to pick 4xx over 5xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound)
}
