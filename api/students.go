package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/student-ledger/generic"
	"go.uber.org/zap"
)

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns every student, newest first.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching students")
		return
	}
	writeList(w, studentsToDTO(students))
}

// SearchStudents matches names containing the path term.
func (h *Handler) SearchStudents(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(chi.URLParam(r, "name"))
	students, err := h.Store.SearchStudents(r.Context(), term)
	if err != nil {
		h.writeDomainError(w, r, err, "Error searching students")
		return
	}
	n := len(students)
	writeJSON(w, http.StatusOK, SearchResponse{
		Envelope:   Envelope{Success: true, Data: studentsToDTO(students), Count: &n},
		SearchTerm: term,
	})
}

// SearchResponse is a list response that echoes the search term.
type SearchResponse struct {
	Envelope
	SearchTerm string `json:"searchTerm"`
}

// GetStudent returns one student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching student")
		return
	}
	student, err := h.Store.GetStudent(r.Context(), generic.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err, "Error fetching student")
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	writeOK(w, http.StatusOK, "", studentToDTO(*student))
}

// CreateStudent validates and inserts a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error creating student")
		return
	}
	in, err := req.input().Normalize()
	if err != nil {
		h.writeDomainError(w, r, err, "Error creating student")
		return
	}
	student, err := h.Store.CreateStudent(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err, "Error creating student")
		return
	}
	h.invalidateInsights(r)
	writeJSON(w, http.StatusCreated, CreatedResponse{
		Success: true,
		Message: "Student created successfully",
		ID:      int64(student.ID),
		Data:    studentToDTO(student),
	})
}

// UpdateStudent replaces the editable fields of a student.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error updating student")
		return
	}
	var req StudentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error updating student")
		return
	}
	in, err := req.input().Normalize()
	if err != nil {
		h.writeDomainError(w, r, err, "Error updating student")
		return
	}
	student, err := h.Store.UpdateStudent(r.Context(), generic.StudentID(id), in)
	if err != nil {
		h.writeDomainError(w, r, err, "Error updating student")
		return
	}
	h.invalidateInsights(r)
	writeOK(w, http.StatusOK, "Student updated successfully", studentToDTO(student))
}

// DeleteStudent removes a student, their records and their photo file.
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error deleting student")
		return
	}
	student, err := h.Store.DeleteStudent(r.Context(), generic.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err, "Error deleting student")
		return
	}
	h.removePhoto(student.Photo)
	h.invalidateInsights(r)
	writeOK(w, http.StatusOK, "Student deleted successfully", nil)
}

// removePhoto deletes a stored photo. photo is relative to the static root,
// e.g. "student_photos/student_3.jpg"; only the base name is trusted.
func (h *Handler) removePhoto(photo string) {
	if photo == "" {
		return
	}
	path := filepath.Join(h.Config.PhotosDir, filepath.Base(photo))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		h.Log.Warn("failed to remove photo", zap.String("path", path), zap.Error(err))
	}
}
