/*
Package academics holds the student, attendance and exam result records of
the school, together with the field rules applied before they are stored.

PURPOSE:
  The fees package owns money; this package owns everything else a school
  records about a student. The insights package reads these records back to
  flag at-risk students and build the subject x term heatmap.

KEY CONCEPTS:
  - Student:          enrolment record, gmail-only email, age 1-150
  - AttendanceRecord: one day of presence for one student
  - Result:           one exam mark (0-100) with a server-derived grade

SEE ALSO:
  - validate.go: Input rules for students, attendance and results
  - grade.go: Mark to letter grade mapping
  - insights/insights.go: Aggregates attendance and results
*/
package academics

import (
	"time"

	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// STUDENTS
// =============================================================================

// Student is an enrolled student.
type Student struct {
	ID        generic.StudentID
	Name      string
	Age       int
	Course    string
	Email     string
	Photo     string // path relative to the static root, empty when none
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudentInput is the editable part of a student.
type StudentInput struct {
	Name   string
	Age    int
	Course string
	Email  string
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceStatus is the presence mark of one day.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
)

// AttendanceStatuses lists the accepted statuses.
var AttendanceStatuses = []AttendanceStatus{Present, Absent, Late}

// Valid reports whether s is an accepted status.
func (s AttendanceStatus) Valid() bool {
	for _, allowed := range AttendanceStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// AttendanceRecord is one student's presence on one day.
type AttendanceRecord struct {
	ID          int64
	StudentID   generic.StudentID
	StudentName string // filled by listings that join students
	Date        generic.Date
	Status      AttendanceStatus
	Notes       string
	CreatedAt   time.Time
}

// AttendanceEntry is one line of a bulk attendance submission.
type AttendanceEntry struct {
	StudentID generic.StudentID
	Status    AttendanceStatus
	Notes     string
}

// =============================================================================
// RESULTS
// =============================================================================

// DefaultTerm is used when a result names no term.
const DefaultTerm = "Term 1"

// Result is one exam mark.
type Result struct {
	ID          int64
	StudentID   generic.StudentID
	StudentName string
	Subject     string
	Term        string
	Marks       int
	Grade       string
	Remarks     string
	CreatedAt   time.Time
}
