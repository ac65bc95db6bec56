/*
handlers.go - HTTP API handlers for the student ledger

PURPOSE:
  Exposes students, attendance, results, fees and analytics via a REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain packages.

ENDPOINTS:
  Auth (auth.go):
    POST   /auth/register                 Create account, returns token
    POST   /auth/login                    Username or email + password
    GET    /auth/verify                   Echo the token claims

  Students (students.go, media.go):
    GET    /api/students                  List, newest first
    POST   /api/students                  Create
    GET    /api/students/search/{name}    Name contains, ordered by name
    GET    /api/students/{id}             Get
    PUT    /api/students/{id}             Update
    DELETE /api/students/{id}             Delete (removes photo file)
    GET    /api/students/{id}/qrcode      PNG QR code of the public profile URL
    POST   /api/students/{id}/photo       Multipart photo upload

  Attendance / Results (attendance.go, results.go):
    GET    /api/attendance                All records
    POST   /api/attendance                Single or bulk
    GET    /api/attendance/student/{id}
    GET    /api/results                   All results
    POST   /api/results                   Grade derived server-side
    GET    /api/results/student/{id}

  Fees (fees.go):
    GET    /api/fees                      Derived invoice views
    POST   /api/fees                      Create invoice
    GET    /api/fees/student/{id}
    POST   /api/fees/pay                  Record a payment

  Analytics / Exports (analytics.go, export.go):
    GET    /api/analytics/insights
    GET    /api/export/fees.xlsx
    GET    /api/export/heatmap.xlsx

RESPONSE ENVELOPE:
  {"success": bool, "message": "...", "data": ..., "count": n, "error": "..."}

ERROR HANDLING:
  writeDomainError maps generic errors to HTTP status:
  - 400: ValidationError, OverpaymentError, DuplicateError
  - 404: NotFoundError
  - 409: duplicate idempotency key
  - 500: everything else (details logged, not returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/config"
	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/insights"
	"github.com/warp/student-ledger/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Ledger  *fees.Ledger
	Cache   insights.Cache
	Auth    *Auth
	Metrics *Metrics
	Log     *zap.Logger
	Config  config.Config

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store. The insights cache defaults to
// no caching; cmd/server swaps in Redis when configured.
func NewHandler(store *sqlite.Store, cfg config.Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Ledger:   fees.NewLedger(store),
		Cache:    insights.NoCache{},
		Auth:     NewAuth(cfg.JWTSecret, cfg.TokenTTL),
		Metrics:  NewMetrics(),
		Log:      log,
		Config:   cfg,
		validate: newValidator(),
	}
}

// newValidator reports JSON field names and knows the "gmail" tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gmail", func(fl validator.FieldLevel) bool {
		return academics.IsGmail(fl.Field().String())
	})
	return v
}

// =============================================================================
// HELPERS
// =============================================================================

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// writeList writes data with its count.
func writeList[T any](w http.ResponseWriter, items []T) {
	n := len(items)
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: items, Count: &n})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

// writeDomainError maps an error from the domain packages to a response.
// fallback is the message used for unexpected failures.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var nf *generic.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, notFoundMessage(nf.Kind))
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Payment already recorded")
	case errors.Is(err, generic.ErrOverpayment):
		writeError(w, http.StatusBadRequest, "Payment exceeds remaining balance")
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, clientMessage(err))
	default:
		h.Log.Error(fallback,
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
		)
		writeJSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: fallback, Error: "internal error"})
	}
}

func notFoundMessage(kind string) string {
	if kind == "" {
		return "Not found"
	}
	return strings.ToUpper(kind[:1]) + kind[1:] + " not found"
}

// clientMessage returns the message of the innermost structured error.
func clientMessage(err error) string {
	var ve *generic.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var de *generic.DuplicateError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// decode reads a JSON body into dst and runs the struct validator.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var ve *generic.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return &generic.ValidationError{Message: "Invalid request body"}
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(dst, err)
	}
	return nil
}

// validationError turns the first validator failure into a ValidationError.
func validationError(dst any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &generic.ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()
	if m, ok := dst.(validationMessager); ok {
		if msg := m.validationMessage(field, fe.Tag()); msg != "" {
			return &generic.ValidationError{Field: field, Message: msg}
		}
	}
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "gmail":
		msg = "Please provide a valid gmail.com address"
	case "min":
		msg = field + " must be at least " + fe.Param()
	case "max":
		msg = field + " must be at most " + fe.Param()
	case "oneof":
		msg = field + " must be one of: " + fe.Param()
	default:
		msg = field + " is invalid"
	}
	return &generic.ValidationError{Field: field, Message: msg}
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &generic.ValidationError{Field: name, Message: "Invalid " + name}
	}
	return id, nil
}

// invalidateInsights drops cached analytics after a write. A cache failure
// only costs a recomputation, so it is logged and ignored.
func (h *Handler) invalidateInsights(r *http.Request) {
	if err := h.Cache.Invalidate(r.Context()); err != nil {
		h.Log.Warn("insights cache invalidation failed", zap.Error(err))
	}
}
