/*
ledger.go - Invoice ledger: balances, statuses and payment recording

PURPOSE:
  Aggregates payments against invoices and records new payments. The paid
  total, balance and status of an invoice are always derived from its
  payments; the persisted status column is only a cache.

DERIVED VIEW:
  paid_total = sum(payments.amount)            (0 if none)
  balance    = max(amount - paid_total, 0)     (never negative)
  status     = DeriveStatus(amount, paid_total, due_date, today)

PAYMENT ACCEPTANCE:
  amount must be > 0 (finite is guaranteed by generic.MoneyFromFloat)
  reject if amount - (invoice.amount - paid_total) > 0.01

  The check, the insert and the status write share one store transaction.

EXAMPLE:
  ledger := fees.NewLedger(store)
  receipt, err := ledger.RecordPayment(ctx, fees.PaymentRequest{
      InvoiceID: 7,
      Amount:    generic.NewMoney(2500),
      Method:    "mobile",
  })
  if errors.Is(err, generic.ErrOverpayment) {
      // 400 to the client
  }

SEE ALSO:
  - status.go: Status policy
  - store.go: Persistence interfaces
  - api/fees.go: HTTP handlers
*/
package fees

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// PURE AGGREGATION
// =============================================================================

// Enrich derives the view of one invoice from its payments.
func Enrich(inv Invoice, payments []Payment, asOf generic.Date) InvoiceView {
	paid := generic.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return view(inv, paid, asOf)
}

// EnrichInvoices derives views from rows that already carry their paid
// total. The input slice is not modified.
func EnrichInvoices(rows []InvoiceRow, asOf generic.Date) []InvoiceView {
	views := make([]InvoiceView, len(rows))
	for i, r := range rows {
		views[i] = view(r.Invoice, r.PaidTotal, asOf)
	}
	return views
}

func view(inv Invoice, paid generic.Money, asOf generic.Date) InvoiceView {
	return InvoiceView{
		Invoice:   inv,
		PaidTotal: paid,
		Balance:   generic.ClampZero(inv.Amount.Sub(paid)),
		Status:    DeriveStatus(inv.Amount, paid, inv.DueDate, asOf),
	}
}

// exceedsRemaining reports whether a payment would overpay the invoice by
// more than the rounding tolerance.
func exceedsRemaining(requested, remaining generic.Money) bool {
	return requested.Sub(remaining).GreaterThan(generic.Tolerance)
}

// =============================================================================
// LEDGER - Invoice and payment operations over a LedgerStore
// =============================================================================

// Ledger records invoices and payments.
type Ledger struct {
	Store LedgerStore
	Clock generic.Clock
}

// NewLedger creates a ledger using the wall clock.
func NewLedger(store LedgerStore) *Ledger {
	return &Ledger{Store: store, Clock: generic.SystemClock}
}

// CreateInvoice validates and persists an invoice.
func (l *Ledger) CreateInvoice(ctx context.Context, inv Invoice) (generic.InvoiceID, error) {
	if inv.StudentID <= 0 {
		return 0, &generic.ValidationError{Field: "student_id", Message: "student_id is required"}
	}
	if !inv.Amount.IsPositive() {
		return 0, &generic.ValidationError{Field: "amount", Message: "amount must be greater than zero"}
	}
	if inv.DueDate == nil {
		return 0, &generic.ValidationError{Field: "due_date", Message: "due_date is required"}
	}
	inv.Description = strings.TrimSpace(inv.Description)
	inv.CachedStatus = StatusPending

	id, err := l.Store.InsertInvoice(ctx, inv)
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	return id, nil
}

// ListInvoices returns derived views, newest first.
func (l *Ledger) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceView, error) {
	rows, err := l.Store.ListInvoiceRows(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return EnrichInvoices(rows, l.Clock.Today()), nil
}

// RecordPayment validates and applies a payment atomically.
func (l *Ledger) RecordPayment(ctx context.Context, req PaymentRequest) (PaymentReceipt, error) {
	if req.InvoiceID <= 0 {
		return PaymentReceipt{}, &generic.ValidationError{Field: "fee_id", Message: "fee_id is required"}
	}
	if !req.Amount.IsPositive() {
		return PaymentReceipt{}, &generic.ValidationError{Field: "amount", Message: "payment amount must be greater than zero"}
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = DefaultMethod
	}
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	today := l.Clock.Today()

	var receipt PaymentReceipt
	err := l.Store.WithTx(ctx, func(s Store) error {
		inv, err := s.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return &generic.NotFoundError{Kind: "invoice", ID: int64(req.InvoiceID)}
		}

		payments, err := s.PaymentsFor(ctx, inv.ID)
		if err != nil {
			return err
		}
		before := Enrich(*inv, payments, today)
		remaining := inv.Amount.Sub(before.PaidTotal)
		if exceedsRemaining(req.Amount, remaining) {
			return &generic.OverpaymentError{InvoiceID: inv.ID, Remaining: remaining, Requested: req.Amount}
		}

		paymentID, err := s.InsertPayment(ctx, Payment{
			InvoiceID:      inv.ID,
			Amount:         req.Amount,
			Method:         method,
			PaidAt:         l.now(),
			IdempotencyKey: key,
		})
		if err != nil {
			return err
		}

		after := view(*inv, before.PaidTotal.Add(req.Amount), today)
		if err := s.SetInvoiceStatus(ctx, inv.ID, after.Status); err != nil {
			return err
		}

		receipt = PaymentReceipt{
			PaymentID:      paymentID,
			InvoiceID:      inv.ID,
			PaidTotal:      after.PaidTotal,
			Balance:        after.Balance,
			Status:         after.Status,
			IdempotencyKey: key,
		}
		return nil
	})
	if err != nil {
		return PaymentReceipt{}, err
	}
	return receipt, nil
}

// SyncStatuses rewrites the cached status of every invoice whose derived
// status changed (e.g. pending -> overdue once the due date passes).
// Returns the number of invoices updated.
func (l *Ledger) SyncStatuses(ctx context.Context) (int, error) {
	views, err := l.ListInvoices(ctx, InvoiceFilter{})
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, v := range views {
		if v.CachedStatus == v.Status {
			continue
		}
		if err := l.Store.SetInvoiceStatus(ctx, v.ID, v.Status); err != nil {
			return updated, fmt.Errorf("sync status of invoice %d: %w", v.ID, err)
		}
		updated++
	}
	return updated, nil
}

func (l *Ledger) now() time.Time {
	if l.Clock == nil {
		return time.Now().UTC()
	}
	return l.Clock().UTC()
}
