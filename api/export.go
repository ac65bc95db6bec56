package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/report"
)

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportFees downloads the invoice views as a spreadsheet.
func (h *Handler) ExportFees(w http.ResponseWriter, r *http.Request) {
	views, err := h.Ledger.ListInvoices(r.Context(), fees.InvoiceFilter{})
	if err != nil {
		h.writeDomainError(w, r, err, "Error exporting fees")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteInvoices(&buf, views); err != nil {
		h.writeDomainError(w, r, err, "Error exporting fees")
		return
	}
	writeAttachment(w, "fees.xlsx", buf.Bytes())
}

// ExportHeatmap downloads the heatmap and the at-risk sheet.
func (h *Handler) ExportHeatmap(w http.ResponseWriter, r *http.Request) {
	in, err := h.loadInsights(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "Error exporting insights")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteInsights(&buf, in); err != nil {
		h.writeDomainError(w, r, err, "Error exporting insights")
		return
	}
	writeAttachment(w, "heatmap.xlsx", buf.Bytes())
}

// writeAttachment sends a fully rendered workbook. Rendering into a buffer
// first lets a failure still produce a JSON error.
func writeAttachment(w http.ResponseWriter, name string, body []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
