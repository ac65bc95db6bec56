/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract. Field names are
  snake_case on requests and match the stored columns on responses so
  existing browser clients keep working.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Top-level response bodies that do not use Envelope

TYPES:
  Auth:        RegisterRequest, LoginRequest, UserDTO, AuthResponse
  Students:    StudentRequest, StudentDTO
  Attendance:  AttendanceRequest, AttendanceEntryRequest, AttendanceDTO
  Results:     ResultRequest, ResultDTO
  Fees:        CreateFeeRequest, PayFeeRequest, InvoiceDTO, PaymentResponse
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry go-playground/validator tags for presence and shape.
  Domain rules (gmail domain, marks range, tolerance) are re-checked by the
  domain packages. A request type may implement validationMessager to keep
  the established client-facing wording.

SEE ALSO:
  - handlers.go: decode() runs the validator
*/
package api

import (
	"time"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/store/sqlite"
)

// validationMessager overrides the message of a failed validator tag.
// An empty return falls back to the generic message.
type validationMessager interface {
	validationMessage(field, tag string) string
}

// =============================================================================
// AUTH
// =============================================================================

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,gmail"`
	Password string `json:"password" validate:"required,min=6"`
}

func (RegisterRequest) validationMessage(field, tag string) string {
	switch {
	case tag == "required":
		return "Username, email, and password are required"
	case field == "password":
		return "Password must be at least 6 characters long"
	}
	return ""
}

// LoginRequest accepts a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (LoginRequest) validationMessage(string, string) string {
	return "Username and password are required"
}

// UserDTO is the public part of an account.
type UserDTO struct {
	ID       generic.UserID `json:"id"`
	Username string         `json:"username"`
	Email    string         `json:"email"`
	Role     string         `json:"role,omitempty"`
}

func userToDTO(u sqlite.User) UserDTO {
	return UserDTO{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// AuthResponse carries the token at the top level.
type AuthResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Token   string  `json:"token,omitempty"`
	User    UserDTO `json:"user"`
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentRequest is the body of student create and update. Rules are
// checked by academics.StudentInput.Normalize.
type StudentRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Course string `json:"course"`
	Email  string `json:"email"`
}

func (r StudentRequest) input() academics.StudentInput {
	return academics.StudentInput{Name: r.Name, Age: r.Age, Course: r.Course, Email: r.Email}
}

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID        generic.StudentID `json:"id"`
	Name      string            `json:"name"`
	Age       int               `json:"age"`
	Course    string            `json:"course"`
	Email     string            `json:"email"`
	Photo     *string           `json:"photo"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func studentToDTO(s academics.Student) StudentDTO {
	dto := StudentDTO{
		ID:        s.ID,
		Name:      s.Name,
		Age:       s.Age,
		Course:    s.Course,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Photo != "" {
		photo := s.Photo
		dto.Photo = &photo
	}
	return dto
}

func studentsToDTO(list []academics.Student) []StudentDTO {
	out := make([]StudentDTO, len(list))
	for i, s := range list {
		out[i] = studentToDTO(s)
	}
	return out
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRequest is either a single mark or, with Bulk or Records set,
// a batch for one date.
type AttendanceRequest struct {
	StudentID int64                    `json:"student_id"`
	Date      string                   `json:"date"`
	Status    string                   `json:"status"`
	Notes     string                   `json:"notes"`
	Bulk      any                      `json:"bulk"`
	Records   []AttendanceEntryRequest `json:"records"`
}

// isBulk accepts bulk as true or "true", or any non-empty records list.
func (r AttendanceRequest) isBulk() bool {
	switch v := r.Bulk.(type) {
	case bool:
		if v {
			return true
		}
	case string:
		if v == "true" {
			return true
		}
	}
	return len(r.Records) > 0
}

// AttendanceEntryRequest is one line of a bulk submission.
type AttendanceEntryRequest struct {
	StudentID int64  `json:"student_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// AttendanceDTO represents an attendance record in API responses.
type AttendanceDTO struct {
	ID          int64             `json:"id"`
	StudentID   generic.StudentID `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	Date        generic.Date      `json:"date"`
	Status      string            `json:"status"`
	Notes       string            `json:"notes"`
	CreatedAt   time.Time         `json:"created_at"`
}

func attendanceToDTO(list []academics.AttendanceRecord) []AttendanceDTO {
	out := make([]AttendanceDTO, len(list))
	for i, a := range list {
		out[i] = AttendanceDTO{
			ID:          a.ID,
			StudentID:   a.StudentID,
			StudentName: a.StudentName,
			Date:        a.Date,
			Status:      string(a.Status),
			Notes:       a.Notes,
			CreatedAt:   a.CreatedAt,
		}
	}
	return out
}

// BulkAttendanceResponse reports the ids of a bulk insert.
type BulkAttendanceResponse struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	Count       int     `json:"count"`
	InsertedIDs []int64 `json:"insertedIds"`
}

// =============================================================================
// RESULTS
// =============================================================================

// ResultRequest is the body of POST /api/results. Marks is a float so
// fractional input can be rejected rather than truncated.
type ResultRequest struct {
	StudentID int64    `json:"student_id" validate:"required"`
	Subject   string   `json:"subject" validate:"required"`
	Term      string   `json:"term"`
	Marks     *float64 `json:"marks" validate:"required"`
	Remarks   string   `json:"remarks"`
}

func (ResultRequest) validationMessage(string, string) string {
	return "student_id, subject and marks are required"
}

// ResultDTO represents an exam result in API responses.
type ResultDTO struct {
	ID          int64             `json:"id"`
	StudentID   generic.StudentID `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	Subject     string            `json:"subject"`
	Term        string            `json:"term"`
	Marks       int               `json:"marks"`
	Grade       string            `json:"grade"`
	Remarks     string            `json:"remarks"`
	CreatedAt   time.Time         `json:"created_at"`
}

func resultToDTO(r academics.Result) ResultDTO {
	return ResultDTO{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Subject:     r.Subject,
		Term:        r.Term,
		Marks:       r.Marks,
		Grade:       r.Grade,
		Remarks:     r.Remarks,
		CreatedAt:   r.CreatedAt,
	}
}

func resultsToDTO(list []academics.Result) []ResultDTO {
	out := make([]ResultDTO, len(list))
	for i, r := range list {
		out[i] = resultToDTO(r)
	}
	return out
}

// =============================================================================
// FEES
// =============================================================================

// CreateFeeRequest is the body of POST /api/fees.
type CreateFeeRequest struct {
	StudentID   int64         `json:"student_id" validate:"required"`
	Amount      *float64      `json:"amount" validate:"required"`
	DueDate     *generic.Date `json:"due_date" validate:"required"`
	Description string        `json:"description"`
}

func (CreateFeeRequest) validationMessage(string, string) string {
	return "student_id, amount and due_date are required"
}

// PayFeeRequest is the body of POST /api/fees/pay. A client retrying a
// payment sends the same idempotency_key.
type PayFeeRequest struct {
	FeeID          int64    `json:"fee_id" validate:"required"`
	Amount         *float64 `json:"amount" validate:"required"`
	Method         string   `json:"method"`
	IdempotencyKey string   `json:"idempotency_key" validate:"omitempty,max=128"`
}

func (PayFeeRequest) validationMessage(field, tag string) string {
	if tag == "required" {
		return "fee_id and amount are required"
	}
	return ""
}

// InvoiceDTO is the derived view of an invoice.
type InvoiceDTO struct {
	ID          generic.InvoiceID `json:"id"`
	StudentID   generic.StudentID `json:"student_id"`
	StudentName string            `json:"student_name,omitempty"`
	Amount      float64           `json:"amount"`
	DueDate     *generic.Date     `json:"due_date"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	PaidTotal   float64           `json:"paid_total"`
	Balance     float64           `json:"balance"`
	Status      fees.Status       `json:"status"`
}

func invoicesToDTO(views []fees.InvoiceView) []InvoiceDTO {
	out := make([]InvoiceDTO, len(views))
	for i, v := range views {
		out[i] = InvoiceDTO{
			ID:          v.ID,
			StudentID:   v.StudentID,
			StudentName: v.StudentName,
			Amount:      generic.Float(v.Amount),
			DueDate:     v.DueDate,
			Description: v.Description,
			CreatedAt:   v.CreatedAt,
			PaidTotal:   generic.Float(v.PaidTotal),
			Balance:     generic.Float(v.Balance),
			Status:      v.Status,
		}
	}
	return out
}

// PaymentResponse reports an accepted payment at the top level.
type PaymentResponse struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	PaymentID      generic.PaymentID `json:"paymentId"`
	PaidTotal      float64           `json:"paidTotal"`
	Balance        float64           `json:"balance"`
	Status         fees.Status       `json:"status"`
	IdempotencyKey string            `json:"idempotencyKey"`
}

// =============================================================================
// CREATION
// =============================================================================

// CreatedResponse reports the id of a new record, plus the record itself
// where the client needs it.
type CreatedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Data    any    `json:"data,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}
