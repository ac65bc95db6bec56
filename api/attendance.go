package api

import (
	"fmt"
	"net/http"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns every record with the student name, latest date
// first.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListAttendance(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching attendance")
		return
	}
	writeList(w, attendanceToDTO(records))
}

// StudentAttendance returns the records of one student.
func (h *Handler) StudentAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching attendance")
		return
	}
	records, err := h.Store.AttendanceForStudent(r.Context(), generic.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching attendance")
		return
	}
	writeList(w, attendanceToDTO(records))
}

// RecordAttendance accepts a single mark or a bulk batch for one date. A
// batch is validated entirely before anything is written, then inserted
// in one transaction.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error recording attendance")
		return
	}

	if req.isBulk() {
		entries := make([]academics.AttendanceEntry, len(req.Records))
		for i, e := range req.Records {
			entries[i] = academics.AttendanceEntry{
				StudentID: generic.StudentID(e.StudentID),
				Status:    academics.AttendanceStatus(e.Status),
				Notes:     e.Notes,
			}
		}
		records, err := academics.NewBulkAttendance(req.Date, entries)
		if err != nil {
			h.writeDomainError(w, r, err, "Error recording attendance")
			return
		}
		ids, err := h.Store.InsertAttendance(r.Context(), records)
		if err != nil {
			h.writeDomainError(w, r, err, "Error recording attendance")
			return
		}
		h.invalidateInsights(r)
		writeJSON(w, http.StatusCreated, BulkAttendanceResponse{
			Success:     true,
			Message:     fmt.Sprintf("Attendance recorded for %d student(s)", len(ids)),
			Count:       len(ids),
			InsertedIDs: ids,
		})
		return
	}

	record, err := academics.NewAttendance(
		generic.StudentID(req.StudentID), req.Date, academics.AttendanceStatus(req.Status), req.Notes)
	if err != nil {
		h.writeDomainError(w, r, err, "Error recording attendance")
		return
	}
	ids, err := h.Store.InsertAttendance(r.Context(), []academics.AttendanceRecord{record})
	if err != nil {
		h.writeDomainError(w, r, err, "Error recording attendance")
		return
	}
	h.invalidateInsights(r)
	writeJSON(w, http.StatusCreated, CreatedResponse{
		Success: true,
		Message: "Attendance recorded successfully",
		ID:      ids[0],
	})
}
