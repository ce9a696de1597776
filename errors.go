package subsplit

import (
	"errors"
	"fmt"

	"github.com/xraph/subsplit/store"
	"github.com/xraph/subsplit/types"
)

// Sentinel errors for common failure scenarios. Every error returned by a
// Ledger operation wraps exactly one of the kinds below.
var (
	// General errors
	ErrInvalidInput = types.ErrInvalidInput
	ErrUnauthorized = errors.New("subsplit: unauthorized")
	ErrNotFound     = store.ErrNotFound

	// Arithmetic errors
	ErrOverflow  = types.ErrOverflow
	ErrUnderflow = types.ErrUnderflow

	// Lifecycle errors
	ErrAlreadyTerminal   = errors.New("subsplit: subscription is not active")
	ErrNotDue            = errors.New("subsplit: subscription is not due")
	ErrNothingToWithdraw = errors.New("subsplit: nothing to withdraw")

	// Payment errors
	ErrPaymentFailed = errors.New("subsplit: payment failed")

	// Store errors
	ErrStoreClosed       = errors.New("subsplit: store is closed")
	ErrTransactionFailed = errors.New("subsplit: transaction failed")
	ErrMigrationFailed   = errors.New("subsplit: migration failed")
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("subsplit: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError an ErrInvalidInput.
func (e ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "subsplit: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("subsplit: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTerminal returns true if the error reports a cancelled or expired subscription.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAlreadyTerminal)
}

// IsArithmetic returns true if the error is an overflow or underflow.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow)
}

// IsRetryable returns true if the error is temporary and the caller may
// retry the same operation later. The ledger itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPaymentFailed) ||
		errors.Is(err, ErrNotDue) ||
		errors.Is(err, ErrTransactionFailed)
}
