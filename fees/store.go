/*
store.go - Persistence interfaces for invoices and payments

PURPOSE:
  Defines the boundary between the ledger logic and the database.
  Implementations: store/sqlite (production) and fees/store (in-memory).

KEY INTERFACES:
  Store:       Reads and writes used by the payment path
  TxStore:     Store + WithTx for the atomic payment sequence
  LedgerStore: TxStore + invoice creation and listing

ATOMIC PAYMENTS:
  RecordPayment runs load-invoice, sum-payments, validate, insert-payment,
  write-status inside a single WithTx call. Two concurrent payments can no
  longer both pass the overpayment check against the same stale balance.

SEE ALSO:
  - ledger.go: Uses these interfaces
  - store/sqlite/fees.go: SQLite implementation
*/
package fees

import (
	"context"

	"github.com/warp/student-ledger/generic"
)

// Store handles the reads and writes of the payment path.
type Store interface {
	// GetInvoice returns the invoice, or nil when it doesn't exist.
	GetInvoice(ctx context.Context, id generic.InvoiceID) (*Invoice, error)

	// PaymentsFor returns all payments applied to an invoice.
	PaymentsFor(ctx context.Context, id generic.InvoiceID) ([]Payment, error)

	// InsertPayment persists a payment. Returns
	// generic.ErrDuplicateIdempotencyKey if the key was already used.
	InsertPayment(ctx context.Context, p Payment) (generic.PaymentID, error)

	// SetInvoiceStatus updates the cached status column.
	SetInvoiceStatus(ctx context.Context, id generic.InvoiceID, status Status) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// LedgerStore is everything the Ledger needs.
type LedgerStore interface {
	TxStore

	// InsertInvoice persists a new invoice with status pending.
	InsertInvoice(ctx context.Context, inv Invoice) (generic.InvoiceID, error)

	// ListInvoiceRows returns invoices with their paid totals, newest first.
	ListInvoiceRows(ctx context.Context, filter InvoiceFilter) ([]InvoiceRow, error)
}
