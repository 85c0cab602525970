// Package workflow implements the subprocess workflow state machine: guards,
// the transition executor, and the per-use-case orchestrator operations.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sgcbr/sgcflow/pkg/models"
)

// Sentinel errors the typed failures below wrap, so callers can classify
// with errors.Is without caring about the carried detail.
var (
	ErrInvalidState      = errors.New("subprocess is not in a state that allows this operation")
	ErrValidationFailed  = errors.New("business precondition unmet")
	ErrAccessDenied      = errors.New("caller lacks the required relationship")
	ErrInvariantViolated = errors.New("structural invariant violated")
)

// InvalidStateError is the universal transition guard failure. It names the
// current and the allowed states and is never retried automatically.
type InvalidStateError struct {
	SubprocessID int64
	Current      models.Situacao
	Allowed      []models.Situacao
}

func (e *InvalidStateError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}

	return fmt.Sprintf("subprocess %d is in state %s, expected one of [%s]",
		e.SubprocessID, e.Current, strings.Join(allowed, ", "))
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// NewInvalidStateError creates the guard failure for requireInState.
func NewInvalidStateError(subprocessID int64, current models.Situacao, allowed ...models.Situacao) *InvalidStateError {
	return &InvalidStateError{
		SubprocessID: subprocessID,
		Current:      current,
		Allowed:      allowed,
	}
}

// ValidationError carries the list of offending items for caller display.
type ValidationError struct {
	Rule  string
	Items []string
}

func (e *ValidationError) Error() string {
	if len(e.Items) == 0 {
		return e.Rule
	}

	return fmt.Sprintf("%s: %s", e.Rule, strings.Join(e.Items, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a business precondition failure.
func NewValidationError(rule string, items ...string) *ValidationError {
	return &ValidationError{
		Rule:  rule,
		Items: items,
	}
}

// AccessDeniedError is surfaced as an authorization failure.
type AccessDeniedError struct {
	CallerTitle string
	Action      string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("caller %s is not allowed to perform %s", e.CallerTitle, e.Action)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}

// InvariantError marks a relationship that should always exist but does not.
// It is a defect, logged at high severity; the operation aborts.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s", e.Detail)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolated
}

// NewInvariantError creates a fatal structural failure.
func NewInvariantError(format string, args ...any) *InvariantError {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}

// IsInvalidState checks if an error is a rejected-operation state failure.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsValidationFailed checks if an error is an unmet business precondition.
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsAccessDenied checks if an error is an authorization failure.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvariantViolated checks if an error is a fatal structural defect.
func IsInvariantViolated(err error) bool {
	return errors.Is(err, ErrInvariantViolated)
}

// BulkError aggregates per-unit failures of a bulk operation. Every unit is
// attempted regardless of earlier failures; the successes stand.
type BulkError struct {
	Failures map[int64]error // keyed by unit code
}

func (e *BulkError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for code, err := range e.Failures {
		parts = append(parts, fmt.Sprintf("unit %d: %v", code, err))
	}

	return fmt.Sprintf("%d of the requested units failed: %s", len(e.Failures), strings.Join(parts, "; "))
}
