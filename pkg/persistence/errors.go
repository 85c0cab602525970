// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSubprocessNotFound indicates no subprocess exists for the given identifier.
	ErrSubprocessNotFound = errors.New("subprocess not found")

	// ErrProcessNotFound indicates no process exists for the given identifier.
	ErrProcessNotFound = errors.New("process not found")

	// ErrUnitNotFound indicates no unit exists for the given code or sigla.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrMapNotFound indicates no competency map exists for the given identifier.
	ErrMapNotFound = errors.New("competency map not found")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op     string // operation being performed (e.g. "GetByID", "Save")
	Entity string // entity kind (e.g. "subprocess", "unit")
	ID     string // identifier if applicable
	Err    error  // underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsSubprocessNotFound checks if an error indicates a missing subprocess.
func IsSubprocessNotFound(err error) bool {
	return errors.Is(err, ErrSubprocessNotFound)
}

// IsUnitNotFound checks if an error indicates a missing unit.
func IsUnitNotFound(err error) bool {
	return errors.Is(err, ErrUnitNotFound)
}

// IsNotFound checks if an error indicates any missing referenced entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubprocessNotFound) ||
		errors.Is(err, ErrProcessNotFound) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrMapNotFound)
}
