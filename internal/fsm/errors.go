package fsm

import (
	"errors"
	"fmt"
)

// RuntimeError represents an event the machine refused to apply.
//
// Runtime errors include:
//   - Event rejected: no rule for (state, event)
//   - Nothing to commit: dish or meal is empty
//   - Invalid group: the selected group is unknown or of the other type
//   - Queue full: the event buffer dropped an event
//
// A RuntimeError never leaves partial changes behind: the state and the
// session are exactly as they were before the event.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// State is the state the machine was in.
	State State

	// Event is the offending event.
	Event Event
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeEventRejected indicates no transition rule matched.
	ErrCodeEventRejected RuntimeErrorCode = "EVENT_REJECTED"

	// ErrCodeNothingToCommit indicates a dish or meal action on empty data.
	ErrCodeNothingToCommit RuntimeErrorCode = "NOTHING_TO_COMMIT"

	// ErrCodeInvalidGroup indicates a group selection that cannot be used.
	ErrCodeInvalidGroup RuntimeErrorCode = "INVALID_GROUP"

	// ErrCodeQueueFull indicates an event was dropped by the bounded queue.
	ErrCodeQueueFull RuntimeErrorCode = "QUEUE_FULL"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s (state=%s, event=%s)", e.Code, e.Message, e.State, e.Event)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsEventRejected returns true if no transition rule matched.
// Uses errors.As to handle wrapped errors.
func IsEventRejected(err error) bool { return hasCode(err, ErrCodeEventRejected) }

// IsNothingToCommit returns true if a dish/meal action found nothing to act on.
func IsNothingToCommit(err error) bool { return hasCode(err, ErrCodeNothingToCommit) }

// IsInvalidGroup returns true if a group selection was refused.
func IsInvalidGroup(err error) bool { return hasCode(err, ErrCodeInvalidGroup) }

// IsQueueFull returns true if an event was dropped.
func IsQueueFull(err error) bool { return hasCode(err, ErrCodeQueueFull) }

// NewRejectedError creates a RuntimeError for a rule miss.
func NewRejectedError(state State, ev Event) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEventRejected,
		Message: "no transition for event in this state",
		State:   state,
		Event:   ev,
	}
}

// NewNothingToCommitError creates a RuntimeError for an empty dish or meal.
func NewNothingToCommitError(state State, ev Event, what string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNothingToCommit,
		Message: what + " is empty",
		State:   state,
		Event:   ev,
	}
}

// NewInvalidGroupError creates a RuntimeError for a refused group selection.
func NewInvalidGroupError(state State, ev Event, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidGroup,
		Message: cause.Error(),
		State:   state,
		Event:   ev,
	}
}
