package fees

import (
	"time"

	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the derived state of an invoice.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// =============================================================================
// INVOICE & PAYMENT
// =============================================================================

// Invoice is a fee owed by a student.
type Invoice struct {
	ID          generic.InvoiceID
	StudentID   generic.StudentID
	StudentName string // filled by listings that join students
	Amount      generic.Money
	DueDate     *generic.Date
	Description string
	CreatedAt   time.Time

	// CachedStatus is the persisted status column. It is refreshed after
	// payments and by the status-sync scheduler. Never read it as truth.
	CachedStatus Status
}

// Payment is a partial or full settlement of one invoice.
type Payment struct {
	ID             generic.PaymentID
	InvoiceID      generic.InvoiceID
	Amount         generic.Money
	Method         string
	PaidAt         time.Time
	IdempotencyKey string
}

// InvoiceRow is an invoice with its paid total already aggregated by the
// store.
type InvoiceRow struct {
	Invoice
	PaidTotal generic.Money
}

// InvoiceView is the derived read model: recomputed on every read.
type InvoiceView struct {
	Invoice
	PaidTotal generic.Money
	Balance   generic.Money
	Status    Status
}

// InvoiceFilter narrows invoice listings. Zero value lists everything.
type InvoiceFilter struct {
	StudentID generic.StudentID
}

// DefaultMethod is used when a payment names no method.
const DefaultMethod = "cash"

// PaymentRequest is the input of Ledger.RecordPayment.
type PaymentRequest struct {
	InvoiceID      generic.InvoiceID
	Amount         generic.Money
	Method         string
	IdempotencyKey string // generated when empty
}

// PaymentReceipt is the outcome of an accepted payment.
type PaymentReceipt struct {
	PaymentID      generic.PaymentID
	InvoiceID      generic.InvoiceID
	PaidTotal      generic.Money
	Balance        generic.Money
	Status         Status
	IdempotencyKey string
}
