package fees_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/fees/store"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*fees.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ledger := fees.NewLedger(mem)
	ledger.Clock = generic.FixedClock(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))
	return ledger, mem
}

func createInvoice(t *testing.T, l *fees.Ledger, amount float64, due generic.Date) generic.InvoiceID {
	t.Helper()
	id, err := l.CreateInvoice(context.Background(), fees.Invoice{
		StudentID:   1,
		Amount:      money(amount),
		DueDate:     &due,
		Description: "Tuition",
	})
	require.NoError(t, err)
	return id
}

func pay(l *fees.Ledger, id generic.InvoiceID, amount string) (fees.PaymentReceipt, error) {
	return l.RecordPayment(context.Background(), fees.PaymentRequest{
		InvoiceID: id,
		Amount:    generic.MustParseMoney(amount),
	})
}

// =============================================================================
// PURE AGGREGATION
// =============================================================================

func TestEnrich_SumsPaymentsAndClampsBalance(t *testing.T) {
	inv := fees.Invoice{ID: 1, Amount: money(1000), DueDate: datePtr(tomorrow)}

	tests := []struct {
		name        string
		payments    []float64
		wantPaid    string
		wantBalance string
		wantStatus  fees.Status
	}{
		{"no payments", nil, "0", "1000", fees.StatusPending},
		{"partial", []float64{250, 250.5}, "500.5", "499.5", fees.StatusPending},
		{"exact", []float64{600, 400}, "1000", "0", fees.StatusPaid},
		{"overpaid within tolerance", []float64{1000.005}, "1000.005", "0", fees.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payments []fees.Payment
			for _, p := range tt.payments {
				payments = append(payments, fees.Payment{InvoiceID: 1, Amount: money(p)})
			}
			v := fees.Enrich(inv, payments, today)

			assert.True(t, v.PaidTotal.Equal(generic.MustParseMoney(tt.wantPaid)), "paid %s", v.PaidTotal)
			assert.True(t, v.Balance.Equal(generic.MustParseMoney(tt.wantBalance)), "balance %s", v.Balance)
			assert.False(t, v.Balance.IsNegative())
			assert.Equal(t, tt.wantStatus, v.Status)
		})
	}
}

func TestEnrichInvoices_IsPure(t *testing.T) {
	// GIVEN: Rows whose cached status disagrees with the derived one
	rows := []fees.InvoiceRow{
		{Invoice: fees.Invoice{ID: 1, Amount: money(200000), DueDate: datePtr(yesterday), CachedStatus: fees.StatusPending}, PaidTotal: money(0)},
		{Invoice: fees.Invoice{ID: 2, Amount: money(500), DueDate: datePtr(yesterday), CachedStatus: fees.StatusOverdue}, PaidTotal: money(500)},
		{Invoice: fees.Invoice{ID: 3, Amount: money(300), DueDate: nil}, PaidTotal: money(400)},
	}
	original := make([]fees.InvoiceRow, len(rows))
	copy(original, rows)

	// WHEN: Enriching twice
	first := fees.EnrichInvoices(rows, today)
	second := fees.EnrichInvoices(rows, today)

	// THEN: Same output, input untouched, reads ignore the cached column
	assert.Equal(t, first, second)
	assert.Equal(t, original, rows)
	assert.Equal(t, fees.StatusOverdue, first[0].Status)
	assert.Equal(t, fees.StatusPaid, first[1].Status)
	assert.True(t, first[2].Balance.IsZero(), "balance never negative")
}

// =============================================================================
// PAYMENT RECORDING
// =============================================================================

func TestRecordPayment_ToleranceBoundary(t *testing.T) {
	ledger, _ := newTestLedger(t)
	id := createInvoice(t, ledger, 1000, tomorrow)

	_, err := pay(ledger, id, "400")
	require.NoError(t, err)

	// WHEN: Paying balance + 0.02
	_, err = pay(ledger, id, "600.02")

	// THEN: Rejected as overpayment
	var over *generic.OverpaymentError
	require.ErrorAs(t, err, &over)
	assert.True(t, errors.Is(err, generic.ErrOverpayment))
	assert.True(t, over.Remaining.Equal(money(600)))
	assert.True(t, over.Excess().Equal(generic.MustParseMoney("0.02")))

	// WHEN: Paying balance + 0.005
	receipt, err := pay(ledger, id, "600.005")

	// THEN: Accepted, invoice settled
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, receipt.Status)
	assert.True(t, receipt.Balance.IsZero())
	assert.True(t, receipt.PaidTotal.Equal(generic.MustParseMoney("1000.005")))
}

func TestRecordPayment_UpdatesCachedStatus(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	id := createInvoice(t, ledger, 900, tomorrow)

	receipt, err := pay(ledger, id, "300")
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPending, receipt.Status)
	assert.True(t, receipt.Balance.Equal(money(600)))
	assert.NotEmpty(t, receipt.IdempotencyKey, "key generated when omitted")

	receipt, err = pay(ledger, id, "600")
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, receipt.Status)

	inv, err := mem.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fees.StatusPaid, inv.CachedStatus)

	payments, err := mem.PaymentsFor(ctx, id)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, fees.DefaultMethod, payments[0].Method)
}

func TestRecordPayment_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	id := createInvoice(t, ledger, 100, tomorrow)

	_, err := pay(ledger, id, "0")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = pay(ledger, id, "-5")
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = pay(ledger, 0, "5")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestRecordPayment_InvoiceNotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := pay(ledger, 42, "10")

	var nf *generic.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "invoice", nf.Kind)
	assert.True(t, generic.IsNotFound(err))
}

func TestRecordPayment_DuplicateIdempotencyKey(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	id := createInvoice(t, ledger, 100, tomorrow)

	req := fees.PaymentRequest{InvoiceID: id, Amount: money(10), IdempotencyKey: "receipt-1"}
	_, err := ledger.RecordPayment(ctx, req)
	require.NoError(t, err)

	_, err = ledger.RecordPayment(ctx, req)
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	payments, err := mem.PaymentsFor(ctx, id)
	require.NoError(t, err)
	assert.Len(t, payments, 1, "replay must not apply twice")
}

func TestRecordPayment_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	// GIVEN: An invoice of 1000 and 20 concurrent payments of 100
	ledger, mem := newTestLedger(t)
	id := createInvoice(t, ledger, 1000, tomorrow)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, rejected := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pay(ledger, id, "100")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.Is(err, generic.ErrOverpayment) {
				rejected++
			}
		}()
	}
	wg.Wait()

	// THEN: Exactly ten fit
	assert.Equal(t, 10, accepted)
	assert.Equal(t, 10, rejected)

	payments, err := mem.PaymentsFor(context.Background(), id)
	require.NoError(t, err)
	v := fees.Enrich(fees.Invoice{Amount: money(1000)}, payments, today)
	assert.True(t, v.PaidTotal.Equal(money(1000)))
}

func TestCreateInvoice_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	due := tomorrow

	_, err := ledger.CreateInvoice(ctx, fees.Invoice{StudentID: 1, Amount: money(0), DueDate: &due})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = ledger.CreateInvoice(ctx, fees.Invoice{StudentID: 0, Amount: money(10), DueDate: &due})
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = ledger.CreateInvoice(ctx, fees.Invoice{StudentID: 1, Amount: money(10)})
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// STATUS SYNC
// =============================================================================

func TestSyncStatuses_FlagsNewlyOverdueInvoices(t *testing.T) {
	// GIVEN: A large invoice due yesterday whose cache still says pending
	ledger, mem := newTestLedger(t)
	ctx := context.Background()
	lateID := createInvoice(t, ledger, 150000, yesterday)
	createInvoice(t, ledger, 500, yesterday)

	// WHEN: Syncing
	n, err := ledger.SyncStatuses(ctx)

	// THEN: Only the large invoice changes
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	inv, err := mem.GetInvoice(ctx, lateID)
	require.NoError(t, err)
	assert.Equal(t, fees.StatusOverdue, inv.CachedStatus)

	// Second run is a no-op
	n, err = ledger.SyncStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
