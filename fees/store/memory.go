// Package store provides in-memory fees.LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	invoices    map[generic.InvoiceID]fees.Invoice
	payments    map[generic.InvoiceID][]fees.Payment
	idempotency map[string]bool
	nextInvoice generic.InvoiceID
	nextPayment generic.PaymentID
}

var _ fees.LedgerStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		invoices:    make(map[generic.InvoiceID]fees.Invoice),
		payments:    make(map[generic.InvoiceID][]fees.Payment),
		idempotency: make(map[string]bool),
	}
}

// InsertInvoice stores an invoice and assigns its ID.
func (m *Memory) InsertInvoice(_ context.Context, inv fees.Invoice) (generic.InvoiceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextInvoice++
	inv.ID = m.nextInvoice
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.CachedStatus == "" {
		inv.CachedStatus = fees.StatusPending
	}
	m.invoices[inv.ID] = inv
	return inv.ID, nil
}

// ListInvoiceRows returns invoices with paid totals, newest first.
func (m *Memory) ListInvoiceRows(_ context.Context, filter fees.InvoiceFilter) ([]fees.InvoiceRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]fees.InvoiceRow, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if filter.StudentID != 0 && inv.StudentID != filter.StudentID {
			continue
		}
		paid := generic.Zero
		for _, p := range m.payments[inv.ID] {
			paid = paid.Add(p.Amount)
		}
		rows = append(rows, fees.InvoiceRow{Invoice: inv, PaidTotal: paid})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}

func (m *Memory) GetInvoice(_ context.Context, id generic.InvoiceID) (*fees.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getInvoiceLocked(id), nil
}

func (m *Memory) PaymentsFor(_ context.Context, id generic.InvoiceID) ([]fees.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsLocked(id), nil
}

func (m *Memory) InsertPayment(_ context.Context, p fees.Payment) (generic.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPaymentLocked(p)
}

func (m *Memory) SetInvoiceStatus(_ context.Context, id generic.InvoiceID, status fees.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusLocked(id, status)
}

func (m *Memory) getInvoiceLocked(id generic.InvoiceID) *fees.Invoice {
	inv, ok := m.invoices[id]
	if !ok {
		return nil
	}
	return &inv
}

func (m *Memory) paymentsLocked(id generic.InvoiceID) []fees.Payment {
	result := make([]fees.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	return result
}

func (m *Memory) insertPaymentLocked(p fees.Payment) (generic.PaymentID, error) {
	if _, ok := m.invoices[p.InvoiceID]; !ok {
		return 0, &generic.NotFoundError{Kind: "invoice", ID: int64(p.InvoiceID)}
	}
	if p.IdempotencyKey != "" && m.idempotency[p.IdempotencyKey] {
		return 0, generic.ErrDuplicateIdempotencyKey
	}
	m.nextPayment++
	p.ID = m.nextPayment
	m.payments[p.InvoiceID] = append(m.payments[p.InvoiceID], p)
	if p.IdempotencyKey != "" {
		m.idempotency[p.IdempotencyKey] = true
	}
	return p.ID, nil
}

func (m *Memory) setStatusLocked(id generic.InvoiceID, status fees.Status) error {
	inv, ok := m.invoices[id]
	if !ok {
		return &generic.NotFoundError{Kind: "invoice", ID: int64(id)}
	}
	inv.CachedStatus = status
	m.invoices[id] = inv
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock.
// Simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(fees.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	invoices    map[generic.InvoiceID]fees.Invoice
	payments    map[generic.InvoiceID][]fees.Payment
	idempotency map[string]bool
	nextPayment generic.PaymentID
}

func (m *Memory) snapshot() memorySnapshot {
	invCopy := make(map[generic.InvoiceID]fees.Invoice, len(m.invoices))
	for k, v := range m.invoices {
		invCopy[k] = v
	}
	payCopy := make(map[generic.InvoiceID][]fees.Payment, len(m.payments))
	for k, v := range m.payments {
		payCopy[k] = append([]fees.Payment{}, v...)
	}
	idempCopy := make(map[string]bool, len(m.idempotency))
	for k, v := range m.idempotency {
		idempCopy[k] = v
	}
	return memorySnapshot{invoices: invCopy, payments: payCopy, idempotency: idempCopy, nextPayment: m.nextPayment}
}

func (m *Memory) restore(s memorySnapshot) {
	m.invoices = s.invoices
	m.payments = s.payments
	m.idempotency = s.idempotency
	m.nextPayment = s.nextPayment
}

// txMemoryView runs under the parent's write lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetInvoice(_ context.Context, id generic.InvoiceID) (*fees.Invoice, error) {
	return tv.parent.getInvoiceLocked(id), nil
}

func (tv *txMemoryView) PaymentsFor(_ context.Context, id generic.InvoiceID) ([]fees.Payment, error) {
	return tv.parent.paymentsLocked(id), nil
}

func (tv *txMemoryView) InsertPayment(_ context.Context, p fees.Payment) (generic.PaymentID, error) {
	return tv.parent.insertPaymentLocked(p)
}

func (tv *txMemoryView) SetInvoiceStatus(_ context.Context, id generic.InvoiceID, status fees.Status) error {
	return tv.parent.setStatusLocked(id, status)
}
