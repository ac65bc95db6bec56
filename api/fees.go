package api

import (
	"errors"
	"net/http"

	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"go.uber.org/zap"
)

// =============================================================================
// FEE HANDLERS
// =============================================================================

// ListFees returns the derived view of every invoice, newest first.
func (h *Handler) ListFees(w http.ResponseWriter, r *http.Request) {
	views, err := h.Ledger.ListInvoices(r.Context(), fees.InvoiceFilter{})
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching fees")
		return
	}
	writeList(w, invoicesToDTO(views))
}

// StudentFees returns the invoices of one student.
func (h *Handler) StudentFees(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching fees")
		return
	}
	views, err := h.Ledger.ListInvoices(r.Context(), fees.InvoiceFilter{StudentID: generic.StudentID(id)})
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching fees")
		return
	}
	writeList(w, invoicesToDTO(views))
}

// CreateFee creates an invoice.
func (h *Handler) CreateFee(w http.ResponseWriter, r *http.Request) {
	var req CreateFeeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error creating fee")
		return
	}
	amount, err := generic.MoneyFromFloat(*req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}

	id, err := h.Ledger.CreateInvoice(r.Context(), fees.Invoice{
		StudentID:   generic.StudentID(req.StudentID),
		Amount:      amount,
		DueDate:     req.DueDate,
		Description: req.Description,
	})
	if err != nil {
		h.writeDomainError(w, r, err, "Error creating fee")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{
		Success: true,
		Message: "Fee invoice created",
		ID:      int64(id),
	})
}

// PayFee records a payment against an invoice. The overpayment check, the
// insert and the cached status write happen in one transaction.
func (h *Handler) PayFee(w http.ResponseWriter, r *http.Request) {
	var req PayFeeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error recording payment")
		return
	}
	amount, err := generic.MoneyFromFloat(*req.Amount)
	if err != nil {
		h.Metrics.Payments.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "Payment amount must be greater than zero")
		return
	}

	receipt, err := h.Ledger.RecordPayment(r.Context(), fees.PaymentRequest{
		InvoiceID:      generic.InvoiceID(req.FeeID),
		Amount:         amount,
		Method:         req.Method,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		var over *generic.OverpaymentError
		if errors.As(err, &over) {
			h.Log.Info("payment rejected",
				zap.Int64("fee_id", req.FeeID),
				zap.String("remaining", over.Remaining.StringFixed(2)),
				zap.String("excess", over.Excess().StringFixed(2)),
			)
		}
		h.Metrics.Payments.WithLabelValues(paymentOutcome(err)).Inc()
		h.writeDomainError(w, r, err, "Error recording payment")
		return
	}

	h.Metrics.Payments.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusCreated, PaymentResponse{
		Success:        true,
		Message:        "Payment recorded",
		PaymentID:      receipt.PaymentID,
		PaidTotal:      generic.Float(receipt.PaidTotal),
		Balance:        generic.Float(receipt.Balance),
		Status:         receipt.Status,
		IdempotencyKey: receipt.IdempotencyKey,
	})
}

func paymentOutcome(err error) string {
	switch {
	case errors.Is(err, generic.ErrOverpayment):
		return "overpayment"
	case generic.IsConflict(err):
		return "duplicate"
	case generic.IsNotFound(err):
		return "not_found"
	case generic.IsClientError(err):
		return "invalid"
	default:
		return "error"
	}
}
