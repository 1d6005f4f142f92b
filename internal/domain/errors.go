package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrEntityNotFound      = errors.New("entity not found")
	ErrNoAvailableTeachers = errors.New("no available teachers")
	ErrAlreadyRegistered   = errors.New("entity already registered")
)

// TransitionError is returned when an event is not in the current status's
// row of the entity type's transition table.
type TransitionError struct {
	EntityType EntityType
	Event      Event
	Current    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid for %s in status %q", e.Event, e.EntityType, e.Current)
}

// QuoteExpiredError is returned when a quote's acceptance window has passed.
type QuoteExpiredError struct {
	QuoteID   string
	ExpiresAt time.Time
}

func (e *QuoteExpiredError) Error() string {
	return fmt.Sprintf("quote %q expired at %s", e.QuoteID, e.ExpiresAt.UTC().Format(time.RFC3339))
}

// AlreadyResolvedError is returned when a quote is no longer in the
// acceptable pre-acceptance status: a sibling won, or this quote itself was
// already expired or rejected.
type AlreadyResolvedError struct {
	QuoteID string
	Status  Status
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("quote %q is already resolved (status %q)", e.QuoteID, e.Status)
}

// DuplicateQuoteError is returned by the repository when a quote for the
// same (lesson request, teacher) pair already exists.
type DuplicateQuoteError struct {
	LessonRequestID string
	TeacherID       string
}

func (e *DuplicateQuoteError) Error() string {
	return fmt.Sprintf("quote for request %q and teacher %q already exists", e.LessonRequestID, e.TeacherID)
}

// ConcurrentConflictError is returned when an operation lost the per-request
// race and its single bounded retry also failed.
type ConcurrentConflictError struct {
	LessonRequestID string
}

func (e *ConcurrentConflictError) Error() string {
	return fmt.Sprintf("concurrent conflict on lesson request %q", e.LessonRequestID)
}

// PersistenceError wraps a repository-layer failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
