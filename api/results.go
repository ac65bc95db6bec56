package api

import (
	"net/http"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// RESULT HANDLERS
// =============================================================================

// ListResults returns every result with the student name, newest first.
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Store.ListResults(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching results")
		return
	}
	writeList(w, resultsToDTO(results))
}

// StudentResults returns the results of one student.
func (h *Handler) StudentResults(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching results")
		return
	}
	results, err := h.Store.ResultsForStudent(r.Context(), generic.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching results")
		return
	}
	writeList(w, resultsToDTO(results))
}

// CreateResult records an exam mark. The grade in the request, if any, is
// ignored and derived from the marks.
func (h *Handler) CreateResult(w http.ResponseWriter, r *http.Request) {
	var req ResultRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error adding result")
		return
	}
	result, err := academics.NewResult(generic.StudentID(req.StudentID), req.Subject, req.Term, *req.Marks, req.Remarks)
	if err != nil {
		h.writeDomainError(w, r, err, "Error adding result")
		return
	}
	id, err := h.Store.InsertResult(r.Context(), result)
	if err != nil {
		h.writeDomainError(w, r, err, "Error adding result")
		return
	}
	h.invalidateInsights(r)
	writeJSON(w, http.StatusCreated, CreatedResponse{
		Success: true,
		Message: "Result added successfully",
		ID:      id,
		Data:    map[string]string{"grade": result.Grade},
	})
}
