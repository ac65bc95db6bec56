package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
)

var _ fees.LedgerStore = (*Store)(nil)

// =============================================================================
// INVOICES (fees.LedgerStore interface)
// =============================================================================

// InsertInvoice persists a new invoice.
func (s *Store) InsertInvoice(ctx context.Context, inv fees.Invoice) (generic.InvoiceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	status := inv.CachedStatus
	if status == "" {
		status = fees.StatusPending
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fees (student_id, amount, due_date, status, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, inv.StudentID, inv.Amount.String(), nullDate(inv.DueDate), status,
		nullString(inv.Description), formatTime(createdAt))
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &generic.NotFoundError{Kind: "student", ID: int64(inv.StudentID)}
		}
		return 0, fmt.Errorf("failed to insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	return generic.InvoiceID(id), err
}

// ListInvoiceRows returns invoices with student names and paid totals,
// newest first.
func (s *Store) ListInvoiceRows(ctx context.Context, filter fees.InvoiceFilter) ([]fees.InvoiceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT f.id, f.student_id, COALESCE(st.name, ''), f.amount, f.due_date,
		       f.status, f.description, f.created_at
		FROM fees f
		LEFT JOIN students st ON st.id = f.student_id
	`
	var args []any
	if filter.StudentID != 0 {
		query += " WHERE f.student_id = ?"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY f.created_at DESC, f.id DESC"

	invoices, err := s.queryInvoices(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}

	// Paid totals are summed in Go: amounts are decimal text.
	paid, err := s.paidTotals(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]fees.InvoiceRow, len(invoices))
	for i, inv := range invoices {
		total, ok := paid[inv.ID]
		if !ok {
			total = generic.Zero
		}
		rows[i] = fees.InvoiceRow{Invoice: inv, PaidTotal: total}
	}
	return rows, nil
}

func (s *Store) paidTotals(ctx context.Context, filter fees.InvoiceFilter) (map[generic.InvoiceID]generic.Money, error) {
	query := `SELECT p.fee_id, p.amount FROM payments p`
	var args []any
	if filter.StudentID != 0 {
		query += ` JOIN fees f ON f.id = p.fee_id WHERE f.student_id = ?`
		args = append(args, filter.StudentID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	totals := make(map[generic.InvoiceID]generic.Money)
	for rows.Next() {
		var (
			id     generic.InvoiceID
			amount string
		)
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		prev, ok := totals[id]
		if !ok {
			prev = generic.Zero
		}
		totals[id] = prev.Add(generic.MustParseMoney(amount))
	}
	return totals, rows.Err()
}

func (s *Store) queryInvoices(ctx context.Context, q queryer, query string, args ...any) ([]fees.Invoice, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []fees.Invoice
	for rows.Next() {
		var (
			inv         fees.Invoice
			amount      string
			dueDate     sql.NullString
			status      string
			description sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&inv.ID, &inv.StudentID, &inv.StudentName, &amount, &dueDate,
			&status, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.Amount = generic.MustParseMoney(amount)
		inv.DueDate = scanDate(dueDate)
		inv.CachedStatus = fees.Status(status)
		inv.Description = description.String
		inv.CreatedAt = parseTime(createdAt)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// =============================================================================
// PAYMENT PATH (fees.Store interface)
// =============================================================================

func (s *Store) GetInvoice(ctx context.Context, id generic.InvoiceID) (*fees.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getInvoice(ctx, s.db, id)
}

func (s *Store) PaymentsFor(ctx context.Context, id generic.InvoiceID) ([]fees.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentsFor(ctx, s.db, id)
}

func (s *Store) InsertPayment(ctx context.Context, p fees.Payment) (generic.PaymentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertPayment(ctx, s.db, p)
}

func (s *Store) SetInvoiceStatus(ctx context.Context, id generic.InvoiceID, status fees.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setInvoiceStatus(ctx, s.db, id, status)
}

func (s *Store) getInvoice(ctx context.Context, q queryer, id generic.InvoiceID) (*fees.Invoice, error) {
	invoices, err := s.queryInvoices(ctx, q, `
		SELECT f.id, f.student_id, COALESCE(st.name, ''), f.amount, f.due_date,
		       f.status, f.description, f.created_at
		FROM fees f
		LEFT JOIN students st ON st.id = f.student_id
		WHERE f.id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

func (s *Store) paymentsFor(ctx context.Context, q queryer, id generic.InvoiceID) ([]fees.Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, fee_id, amount, method, paid_at, idempotency_key
		FROM payments
		WHERE fee_id = ?
		ORDER BY paid_at ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []fees.Payment
	for rows.Next() {
		var (
			p      fees.Payment
			amount string
			paidAt string
			key    sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &p.Method, &paidAt, &key); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = generic.MustParseMoney(amount)
		p.PaidAt = parseTime(paidAt)
		p.IdempotencyKey = key.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) insertPayment(ctx context.Context, q queryer, p fees.Payment) (generic.PaymentID, error) {
	paidAt := p.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	method := p.Method
	if method == "" {
		method = fees.DefaultMethod
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO payments (fee_id, amount, method, paid_at, idempotency_key)
		VALUES (?, ?, ?, ?, ?)
	`, p.InvoiceID, p.Amount.String(), method, formatTime(paidAt), nullString(p.IdempotencyKey))
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, generic.ErrDuplicateIdempotencyKey
		}
		if isForeignKeyError(err) {
			return 0, &generic.NotFoundError{Kind: "invoice", ID: int64(p.InvoiceID)}
		}
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	return generic.PaymentID(id), err
}

func (s *Store) setInvoiceStatus(ctx context.Context, q queryer, id generic.InvoiceID, status fees.Status) error {
	res, err := q.ExecContext(ctx, `UPDATE fees SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "invoice", ID: int64(id)}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (fees.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store fees.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx, parent: s})
	})
}

// txStore routes every call through the open transaction. It never takes
// the parent's mutex, which WithTx already holds.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetInvoice(ctx context.Context, id generic.InvoiceID) (*fees.Invoice, error) {
	return ts.parent.getInvoice(ctx, ts.tx, id)
}

func (ts *txStore) PaymentsFor(ctx context.Context, id generic.InvoiceID) ([]fees.Payment, error) {
	return ts.parent.paymentsFor(ctx, ts.tx, id)
}

func (ts *txStore) InsertPayment(ctx context.Context, p fees.Payment) (generic.PaymentID, error) {
	return ts.parent.insertPayment(ctx, ts.tx, p)
}

func (ts *txStore) SetInvoiceStatus(ctx context.Context, id generic.InvoiceID, status fees.Status) error {
	return ts.parent.setInvoiceStatus(ctx, ts.tx, id, status)
}
