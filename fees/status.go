/*
status.go - Invoice status policy

PURPOSE:
  Pure mapping from (amount, paid total, due date, as-of day) to a status.

RULES (in order):
  1. paidTotal >= amount                          -> paid
  2. amount > 100000 AND dueDate < asOf (by day)  -> overdue
  3. otherwise                                    -> pending

  Invoices at or below OverdueThreshold are never flagged overdue however
  late they are. This is a business rule and must stay as is.

EDGE CASES:
  - dueDate nil        -> never overdue
  - dueDate == asOf    -> not overdue (strict comparison)
  - paid check first   -> a fully paid late invoice is "paid"
*/
package fees

import (
	"github.com/shopspring/decimal"
	"github.com/warp/student-ledger/generic"
)

// OverdueThreshold is the amount an invoice must exceed before it can
// become overdue.
var OverdueThreshold = decimal.NewFromInt(100000)

// DeriveStatus applies the status policy.
func DeriveStatus(amount, paidTotal generic.Money, dueDate *generic.Date, asOf generic.Date) Status {
	if paidTotal.GreaterThanOrEqual(amount) {
		return StatusPaid
	}
	if amount.GreaterThan(OverdueThreshold) && dueDate != nil && dueDate.Before(asOf) {
		return StatusOverdue
	}
	return StatusPending
}
