package serializer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCapacity reports that a document filled up before every line
	// was written. It is a signal to start a new document, not a failure.
	ErrNoCapacity = errors.New("document capacity exhausted")

	// ErrMealTooLarge reports a meal that does not fit even in an empty
	// document.
	ErrMealTooLarge = errors.New("meal exceeds document capacity")
)

// CapacityError carries where a build stopped.
type CapacityError struct {
	// Cursor is the index of the first line not committed to the document.
	Cursor int
	// Meals is how many meals the document holds.
	Meals int
	// Footprint is the document size after rollback.
	Footprint int

	err error
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%v at line %d (%d meals, %d bytes)", e.err, e.Cursor, e.Meals, e.Footprint)
}

func (e *CapacityError) Unwrap() error { return e.err }

// IsNoCapacity reports whether err signals a full document.
func IsNoCapacity(err error) bool { return errors.Is(err, ErrNoCapacity) }
