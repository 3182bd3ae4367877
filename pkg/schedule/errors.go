package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat   = errors.New("invalid date or time format")
	ErrConflict        = errors.New("event conflicts with an existing event")
	ErrIndexOutOfRange = errors.New("event position out of range")
	ErrEventNotFound   = errors.New("event not found")
	ErrCorruptState    = errors.New("stored events are corrupt")
)

// ConflictError names the first existing event, in store order, that overlaps the candidate.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicts with %q", e.Name)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// PersistenceError reports a failed durability write. The mutation that caused it was not committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not persist events after %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
