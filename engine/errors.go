/*
errors.go - Centralized error types for the fee engine

PURPOSE:
  All error types in one place. The engine draws a hard line between
  invalid data (fail fast, descriptive error) and ordinary absence of
  data (valid, representable states - zero schedule, zero paid, zero due).

ERROR POLICY:
  - Missing FeeAmount for a matched rule/class: NOT an error. The rule
    does not price that class and is skipped.
  - Payment referencing an unknown month label: NOT an error for totals.
    Ledger placement is skipped; the amount still counts toward the due.
  - Negative amounts, zero dates, out-of-range config: errors. Failing
    fast beats silently producing negative dues.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of all validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig is returned when fee settings are out of range.
	ErrInvalidConfig = errors.New("invalid fee configuration")

	// ErrNegativeAmount is returned for negative monetary inputs.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrInvalidDate is returned for zero or nonsensical dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrPaymentNotFound is returned when a referenced receipt doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentCancelled is returned when cancelling an already-cancelled
	// payment. Cancellation is the only mutation the log permits, once.
	ErrPaymentCancelled = errors.New("payment already cancelled")

	// ErrDuplicateReceipt is returned when a receipt number collides. The
	// sequence counter makes this unreachable unless the counter guarantee
	// is violated, so surfacing it loudly matters.
	ErrDuplicateReceipt = errors.New("duplicate receipt number")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a specific invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NegativeAmountError identifies which amount went negative.
type NegativeAmountError struct {
	Field string
	Value Money
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("%s is negative: %s", e.Field, e.Value)
}

func (e *NegativeAmountError) Unwrap() error { return ErrNegativeAmount }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrPaymentCancelled)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
