package dues

import (
	"errors"
	"fmt"

	"github.com/xraph/dues/charge"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("dues: not found")
	ErrAlreadyExists = errors.New("dues: already exists")
	ErrInvalidInput  = errors.New("dues: invalid input")

	// Charge errors
	ErrChargeNotFound    = fmt.Errorf("%w: charge", ErrNotFound)
	ErrChargePaid        = errors.New("dues: charge already paid")
	ErrInvalidAmount     = errors.New("dues: amount must be positive")
	ErrOverpayment       = errors.New("dues: amount exceeds remaining balance")
	ErrInvalidTransition = charge.ErrInvalidTransition

	// Period errors
	ErrInvalidPeriod   = errors.New("dues: invalid period")
	ErrPeriodNotDue    = errors.New("dues: period is not past its grace day")
	ErrClosureNotFound = fmt.Errorf("%w: closure", ErrNotFound)

	// Configuration errors
	ErrConfigNotFound = fmt.Errorf("%w: fee config", ErrNotFound)
	ErrInvalidConfig  = errors.New("dues: invalid configuration")

	// Concurrency errors
	ErrConflict        = errors.New("dues: conflicting concurrent update, re-fetch and retry")
	ErrVersionConflict = errors.New("dues: version conflict")

	// Collaborator errors
	ErrUnavailable = errors.New("dues: collaborator unavailable")

	// Store errors
	ErrStoreClosed     = errors.New("dues: store is closed")
	ErrMigrationFailed = errors.New("dues: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("dues: validation failed for %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "dues: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("dues: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is / errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

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

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if a conditional write lost a race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrVersionConflict)
}

// IsInvalidTransition returns true if a status change broke the charge state machine.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsUnavailable returns true if a collaborator (store or directory) could not be read.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsValidation returns true if the caller supplied bad input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnavailable)
}
