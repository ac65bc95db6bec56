/*
Package generic provides the shared primitives of the student ledger service.

PURPOSE:
  Domain-agnostic building blocks used by the fees, academics and insights
  packages: money amounts, identifiers, rounding, date-only values and the
  centralized error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal amounts (never float64 in arithmetic)
  - Tolerance: the 0.01 rounding slack used by overpayment checks
  - Round1: one-decimal rounding used by every reported average
  - Identifiers: type-safe student / invoice / payment IDs

DESIGN PRINCIPLES:
  1. Precision: uses decimal.Decimal so partial payments sum exactly
  2. Type Safety: distinct ID types prevent mixing student and invoice IDs
  3. Floats only at the edges: DTOs convert with Float()

USAGE:
  amount, err := generic.MoneyFromFloat(1500.50)
  if err != nil {
      return err // ValidationError: not finite / not positive
  }
  avg := generic.Round1(generic.Ratio(170, 2)) // 85.0

SEE ALSO:
  - time.go: Date (date-only comparisons for due dates)
  - errors.go: Error taxonomy
  - fees/ledger.go: Uses Money for balance aggregation
*/
package generic

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal amounts for invoices and payments
// =============================================================================

// Money is a decimal currency amount.
type Money = decimal.Decimal

// Tolerance is the rounding slack allowed when a payment exceeds the
// remaining balance of an invoice.
var Tolerance = decimal.RequireFromString("0.01")

// Zero is the zero amount.
var Zero = decimal.Zero

// NewMoney builds an amount from a float. Callers must have validated the
// value with MoneyFromFloat when it comes from user input.
func NewMoney(value float64) Money {
	return decimal.NewFromFloat(value)
}

// MoneyFromFloat validates a user supplied amount. The amount must be finite
// and strictly positive.
func MoneyFromFloat(value float64) (Money, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Zero, &ValidationError{Field: "amount", Message: "amount must be a finite number"}
	}
	if value <= 0 {
		return Zero, &ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	return decimal.NewFromFloat(value), nil
}

// MustParseMoney parses a stored decimal string. Invalid input yields zero.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ClampZero returns the amount, or zero when it is negative.
func ClampZero(a Money) Money {
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// Float converts an amount for JSON responses.
func Float(a Money) float64 {
	return a.InexactFloat64()
}

// =============================================================================
// ROUNDING - One decimal place, half away from zero
// =============================================================================

// Ratio returns num/den as a decimal. den must be non-zero.
func Ratio(num, den int64) decimal.Decimal {
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
}

// Round1 rounds to one decimal place.
func Round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

// Round1Ptr rounds to one decimal place and returns a pointer for nullable
// JSON fields.
func Round1Ptr(d decimal.Decimal) *float64 {
	v := Round1(d)
	return &v
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID int64
type InvoiceID int64
type PaymentID int64
type UserID int64
