/*
errors.go - Centralized error types for the student ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them with fmt.Errorf("...: %w")),
  and the API layer maps them to HTTP status codes in a single helper.

ERROR CATEGORIES:
  1. Validation errors - bad amounts, missing fields, marks out of range
  2. Not-found errors  - unknown invoice / student / user
  3. Ledger errors     - overpayment, duplicate idempotency key
  4. Store errors      - unique constraint violations

USAGE:
  if errors.Is(err, generic.ErrOverpayment) {
      var over *generic.OverpaymentError
      errors.As(err, &over)
      log.Printf("excess %s", over.Excess())
  }

SEE ALSO:
  - fees/ledger.go: Returns ValidationError, NotFoundError, OverpaymentError
  - api/handlers.go: writeDomainError maps these to HTTP responses
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input violates a field rule.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrOverpayment is returned when a payment exceeds the remaining
	// balance of an invoice by more than Tolerance.
	ErrOverpayment = errors.New("payment exceeds remaining balance")

	// ErrDuplicateIdempotencyKey is returned when a payment with the same
	// idempotency key was already recorded. Expected for client retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrDuplicate is returned when a unique column (email, username)
	// already holds the value.
	ErrDuplicate = errors.New("duplicate value")

	// ErrUnauthorized is returned on bad credentials.
	ErrUnauthorized = errors.New("invalid credentials")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError is a shorthand for field-less validation failures.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "invoice", "student", "user"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// DuplicateError reports a unique column that already holds the value.
type DuplicateError struct {
	Field   string
	Message string // client-facing, e.g. "Email already exists"
}

func (e *DuplicateError) Error() string {
	return e.Message
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// OverpaymentError provides details about a rejected payment.
type OverpaymentError struct {
	InvoiceID InvoiceID
	Remaining Money
	Requested Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment exceeds remaining balance: invoice %d remaining %s, requested %s",
		e.InvoiceID, e.Remaining.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}

// Excess returns how far the payment goes past the remaining balance.
func (e *OverpaymentError) Excess() Money {
	return e.Requested.Sub(e.Remaining)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for replays of an already applied write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey)
}
