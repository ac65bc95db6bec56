package academics

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// STUDENTS
// =============================================================================

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsGmail reports whether email is a well-formed gmail.com address.
func IsGmail(email string) bool {
	return emailPattern.MatchString(email) && strings.HasSuffix(strings.ToLower(email), "@gmail.com")
}

// Normalize trims the input and checks the student rules.
func (in StudentInput) Normalize() (StudentInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Course = strings.TrimSpace(in.Course)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" || in.Course == "" || in.Email == "" || in.Age == 0 {
		return in, generic.NewValidationError("All fields (name, age, course, email) are required")
	}
	if in.Age < 1 || in.Age > 150 {
		return in, &generic.ValidationError{Field: "age", Message: "Age must be between 1 and 150"}
	}
	if !IsGmail(in.Email) {
		return in, &generic.ValidationError{Field: "email", Message: "Please provide a valid gmail.com address"}
	}
	return in, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// NewAttendance validates a single attendance submission.
func NewAttendance(studentID generic.StudentID, date string, status AttendanceStatus, notes string) (AttendanceRecord, error) {
	if studentID <= 0 || strings.TrimSpace(date) == "" || status == "" {
		return AttendanceRecord{}, generic.NewValidationError("student_id, date and status are required")
	}
	if !status.Valid() {
		return AttendanceRecord{}, &generic.ValidationError{Field: "status", Message: "Invalid attendance status"}
	}
	day, err := generic.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return AttendanceRecord{}, err
	}
	return AttendanceRecord{
		StudentID: studentID,
		Date:      day,
		Status:    status,
		Notes:     strings.TrimSpace(notes),
	}, nil
}

// NewBulkAttendance validates every entry of a bulk submission against one
// date. The first failing entry is reported with its 1-based position and
// nothing is returned for the others.
func NewBulkAttendance(date string, entries []AttendanceEntry) ([]AttendanceRecord, error) {
	if strings.TrimSpace(date) == "" {
		return nil, &generic.ValidationError{Field: "date", Message: "date is required for bulk attendance"}
	}
	if len(entries) == 0 {
		return nil, &generic.ValidationError{Field: "records", Message: "records array is required and must not be empty"}
	}
	day, err := generic.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}

	records := make([]AttendanceRecord, 0, len(entries))
	for i, e := range entries {
		n := i + 1
		switch {
		case e.StudentID <= 0:
			return nil, generic.NewValidationError("Record %d: student_id is required", n)
		case e.Status == "":
			return nil, generic.NewValidationError("Record %d: status is required", n)
		case !e.Status.Valid():
			return nil, generic.NewValidationError("Record %d: Invalid attendance status: %s", n, e.Status)
		}
		records = append(records, AttendanceRecord{
			StudentID: e.StudentID,
			Date:      day,
			Status:    e.Status,
			Notes:     strings.TrimSpace(e.Notes),
		})
	}
	return records, nil
}

// =============================================================================
// RESULTS
// =============================================================================

// NewResult validates an exam mark and derives its grade. Marks arrive as
// JSON numbers and must be a whole number in [0, 100].
func NewResult(studentID generic.StudentID, subject, term string, marks float64, remarks string) (Result, error) {
	subject = strings.TrimSpace(subject)
	if studentID <= 0 || subject == "" {
		return Result{}, generic.NewValidationError("student_id, subject and marks are required")
	}
	if math.IsNaN(marks) || math.IsInf(marks, 0) || marks < 0 || marks > 100 {
		return Result{}, &generic.ValidationError{Field: "marks", Message: "Marks must be between 0 and 100"}
	}
	if marks != math.Trunc(marks) {
		return Result{}, &generic.ValidationError{Field: "marks", Message: fmt.Sprintf("Marks must be a whole number, got %v", marks)}
	}

	term = strings.TrimSpace(term)
	if term == "" {
		term = DefaultTerm
	}
	m := int(marks)
	return Result{
		StudentID: studentID,
		Subject:   subject,
		Term:      term,
		Marks:     m,
		Grade:     DeriveGrade(m),
		Remarks:   strings.TrimSpace(remarks),
	}, nil
}
