/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Auth middleware (401 / 403) and register / login / verify
- Student validation, search and delete
- Fee invoices and payments, including the overpayment tolerance
- Attendance bulk submissions and result grading
- Insights cache invalidation, exports, QR codes and photo uploads
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/student-ledger/config"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/insights"
	"github.com/warp/student-ledger/report"
	"github.com/warp/student-ledger/store/sqlite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// testToday pins the ledger clock.
var testToday = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	h      *Handler
	router *chi.Mux
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{
		Port:          3000,
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		AdminUsername: "admin",
		AdminPassword: "admin123",
		AdminEmail:    "admin@sms.com",
		CORSOrigins:   []string{"*"},
		PhotosDir:     filepath.Join(t.TempDir(), "student_photos"),
		PublicURL:     "http://school.test",
		DemoEnabled:   true,
	}
	h := NewHandler(store, cfg, zap.NewNop())
	h.Ledger.Clock = generic.FixedClock(testToday)

	token, err := h.Auth.Issue(sqlite.User{ID: 1, Username: "admin", Email: "admin@sms.com", Role: sqlite.RoleAdmin})
	require.NoError(t, err)

	return &testServer{h: h, router: NewRouter(h), token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createStudent(t *testing.T, name, email string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/students", map[string]any{
		"name": name, "age": 16, "course": "Biology", "email": email,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(decodeBody(t, rec)["id"].(float64))
}

func (s *testServer) createFee(t *testing.T, studentID int64, amount float64, due string) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/fees", map[string]any{
		"student_id": studentID, "amount": amount, "due_date": due, "description": "Boarding",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return int64(decodeBody(t, rec)["id"].(float64))
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuth_TokenRequired(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN: no token
	srv.token = ""
	rec := srv.do(t, http.MethodGet, "/api/students", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", decodeBody(t, rec)["message"])

	// GIVEN: a token signed with another secret
	other, err := NewAuth("other-secret", time.Hour).Issue(sqlite.User{ID: 1, Username: "x"})
	require.NoError(t, err)
	srv.token = other
	rec = srv.do(t, http.MethodGet, "/api/students", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])
}

func TestAuth_ExpiredTokenIsForbidden(t *testing.T) {
	srv := newTestServer(t)
	auth := NewAuth("test-secret", time.Hour)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.Issue(sqlite.User{ID: 1, Username: "admin"})
	require.NoError(t, err)

	srv.token = expired
	rec := srv.do(t, http.MethodGet, "/api/students", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_RegisterLoginVerify(t *testing.T) {
	srv := newTestServer(t)
	srv.token = ""

	// WHEN: registering with a short password
	rec := srv.do(t, http.MethodPost, "/auth/register", map[string]any{
		"username": "mary", "email": "mary@gmail.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters long", decodeBody(t, rec)["message"])

	// WHEN: registering with a non-gmail address
	rec = srv.do(t, http.MethodPost, "/auth/register", map[string]any{
		"username": "mary", "email": "mary@yahoo.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please provide a valid gmail.com address", decodeBody(t, rec)["message"])

	// WHEN: registering properly
	rec = srv.do(t, http.MethodPost, "/auth/register", map[string]any{
		"username": "mary", "email": "mary@gmail.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "mary", body["user"].(map[string]any)["username"])

	// THEN: the same username is rejected
	rec = srv.do(t, http.MethodPost, "/auth/register", map[string]any{
		"username": "mary", "email": "other@gmail.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username or email already exists", decodeBody(t, rec)["message"])

	// THEN: login by email works, a wrong password does not
	rec = srv.do(t, http.MethodPost, "/auth/login", map[string]any{"username": "mary@gmail.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["token"].(string)

	rec = srv.do(t, http.MethodPost, "/auth/login", map[string]any{"username": "mary", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decodeBody(t, rec)["message"])

	// THEN: the token verifies
	srv.token = token
	rec = srv.do(t, http.MethodGet, "/auth/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "Token is valid", body["message"])
	assert.Equal(t, "mary@gmail.com", body["user"].(map[string]any)["email"])
}

func TestSeedAdmin_OnlyWhenEmpty(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	created, err := srv.h.SeedAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = srv.h.SeedAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	srv.token = ""
	rec := srv.do(t, http.MethodPost, "/auth/login", map[string]any{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["user"].(map[string]any)["role"])
}

// =============================================================================
// STUDENTS
// =============================================================================

func TestStudents_Lifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Validation comes from the student rules
	rec := srv.do(t, http.MethodPost, "/api/students", map[string]any{
		"name": "Ann", "age": 200, "course": "Art", "email": "ann@gmail.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Age must be between 1 and 150", decodeBody(t, rec)["message"])

	id := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")
	srv.createStudent(t, "Ben Kariuki", "ben@gmail.com")

	rec = srv.do(t, http.MethodPost, "/api/students", map[string]any{
		"name": "Ann Two", "age": 16, "course": "Art", "email": "ann@gmail.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodGet, "/api/students/search/Wamb", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "Wamb", body["searchTerm"])

	rec = srv.do(t, http.MethodGet, "/api/students", nil)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])

	rec = srv.do(t, http.MethodDelete, "/api/students/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/students/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodGet, "/api/students/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudents_EmptyListIsArray(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/api/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

// =============================================================================
// FEES
// =============================================================================

func TestFees_PaymentFlow(t *testing.T) {
	srv := newTestServer(t)
	student := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")

	// GIVEN: 150000 due yesterday -> overdue
	fee := srv.createFee(t, student, 150000, "2026-03-09")
	rec := srv.do(t, http.MethodGet, "/api/fees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "overdue", list[0].(map[string]any)["status"])
	assert.Equal(t, "Ann Wambui", list[0].(map[string]any)["student_name"])

	// WHEN: paying part of it
	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": fee, "amount": 50000, "method": "mobile", "idempotency_key": "k-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Payment recorded", body["message"])
	assert.EqualValues(t, 50000, body["paidTotal"])
	assert.EqualValues(t, 100000, body["balance"])
	assert.Equal(t, "overdue", body["status"])
	assert.Equal(t, "k-1", body["idempotencyKey"])

	// THEN: replaying the key is a conflict
	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": fee, "amount": 50000, "idempotency_key": "k-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// THEN: 0.02 over the remaining balance is rejected
	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": fee, "amount": 100000.02})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Payment exceeds remaining balance", decodeBody(t, rec)["message"])

	// THEN: 0.005 over is within tolerance and settles the invoice
	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": fee, "amount": 100000.005})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, "paid", body["status"])
	assert.EqualValues(t, 0, body["balance"])

	rec = srv.do(t, http.MethodGet, "/api/fees/student/"+itoa(student), nil)
	list = decodeBody(t, rec)["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "paid", list[0].(map[string]any)["status"])
}

func TestFees_Validation(t *testing.T) {
	srv := newTestServer(t)
	student := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")

	rec := srv.do(t, http.MethodPost, "/api/fees", map[string]any{"student_id": student, "amount": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "student_id, amount and due_date are required", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodPost, "/api/fees", map[string]any{"student_id": student, "amount": -5, "due_date": "2026-04-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Amount must be greater than zero", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodPost, "/api/fees", map[string]any{"student_id": 999, "amount": 100, "due_date": "2026-04-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fee_id and amount are required", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": 1, "amount": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Payment amount must be greater than zero", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodPost, "/api/fees/pay", map[string]any{"fee_id": 42, "amount": 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Invoice not found", decodeBody(t, rec)["message"])
}

// =============================================================================
// ATTENDANCE & RESULTS
// =============================================================================

func TestAttendance_Bulk(t *testing.T) {
	srv := newTestServer(t)
	a := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")
	b := srv.createStudent(t, "Ben Kariuki", "ben@gmail.com")

	// WHEN: the second record is invalid, nothing is written
	rec := srv.do(t, http.MethodPost, "/api/attendance", map[string]any{
		"bulk": true, "date": "2026-03-09",
		"records": []map[string]any{{"student_id": a, "status": "present"}, {"student_id": b}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Record 2: status is required", decodeBody(t, rec)["message"])

	rec = srv.do(t, http.MethodGet, "/api/attendance", nil)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	// WHEN: the batch is valid
	rec = srv.do(t, http.MethodPost, "/api/attendance", map[string]any{
		"bulk": "true", "date": "2026-03-09",
		"records": []map[string]any{{"student_id": a, "status": "present"}, {"student_id": b, "status": "late"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Attendance recorded for 2 student(s)", body["message"])
	assert.Len(t, body["insertedIds"], 2)

	// Single mark
	rec = srv.do(t, http.MethodPost, "/api/attendance", map[string]any{"student_id": a, "date": "2026-03-10", "status": "absent"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/attendance/student/"+itoa(a), nil)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])
}

func TestResults_GradeDerivedFromMarks(t *testing.T) {
	srv := newTestServer(t)
	a := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")

	rec := srv.do(t, http.MethodPost, "/api/results", map[string]any{
		"student_id": a, "subject": " Math ", "marks": 85, "grade": "F",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/results/student/"+itoa(a), nil)
	list := decodeBody(t, rec)["data"].([]any)
	require.Len(t, list, 1)
	row := list[0].(map[string]any)
	assert.Equal(t, "A", row["grade"])
	assert.Equal(t, "Math", row["subject"])
	assert.Equal(t, "Term 1", row["term"])

	rec = srv.do(t, http.MethodPost, "/api/results", map[string]any{"student_id": a, "subject": "Math", "marks": 101})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/results", map[string]any{"student_id": a, "subject": "Math"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "student_id, subject and marks are required", decodeBody(t, rec)["message"])
}

// =============================================================================
// ANALYTICS
// =============================================================================

// countingCache remembers insights in memory and counts invalidations.
type countingCache struct {
	cached        *insights.Insights
	invalidations int
}

func (c *countingCache) Get(context.Context) (*insights.Insights, error) { return c.cached, nil }
func (c *countingCache) Set(_ context.Context, in insights.Insights) error {
	c.cached = &in
	return nil
}
func (c *countingCache) Invalidate(context.Context) error {
	c.cached = nil
	c.invalidations++
	return nil
}

func TestInsights_CachedUntilWrite(t *testing.T) {
	srv := newTestServer(t)
	cache := &countingCache{}
	srv.h.Cache = cache

	a := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")
	for i, status := range []string{"present", "absent", "absent"} {
		rec := srv.do(t, http.MethodPost, "/api/attendance", map[string]any{
			"student_id": a, "date": "2026-03-0" + itoa(int64(i+1)), "status": status,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := srv.do(t, http.MethodPost, "/api/results", map[string]any{"student_id": a, "subject": "Math", "marks": 30})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/analytics/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	risk := data["atRiskStudents"].([]any)
	require.Len(t, risk, 1)
	assert.EqualValues(t, 33.3, risk[0].(map[string]any)["attendancePercent"])
	require.NotNil(t, cache.cached)

	// WHEN: a new result arrives, the cache is dropped
	before := cache.invalidations
	rec = srv.do(t, http.MethodPost, "/api/results", map[string]any{"student_id": a, "subject": "Art", "marks": 90})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, before+1, cache.invalidations)
	assert.Nil(t, cache.cached)
}

// =============================================================================
// EXPORTS & MEDIA
// =============================================================================

func TestExportFees_IsSpreadsheet(t *testing.T) {
	srv := newTestServer(t)
	student := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")
	srv.createFee(t, student, 1200, "2026-04-01")

	rec := srv.do(t, http.MethodGet, "/api/export/fees.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fees.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.InvoicesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann Wambui", rows[1][2])
	assert.Equal(t, "pending", rows[1][8])
}

func TestStudentQRCode(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")

	rec := srv.do(t, http.MethodGet, "/api/students/"+itoa(id)+"/qrcode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	assert.Equal(t, "http://school.test/student/7", studentURL("http://school.test/", 7))

	rec = srv.do(t, http.MethodGet, "/api/students/99/qrcode", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func pngUpload(t *testing.T, filename string, w, h int) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, id int64, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/students/"+itoa(id)+"/photo", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadPhoto_ResizesAndReplaces(t *testing.T) {
	srv := newTestServer(t)
	id := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")

	// WHEN: uploading an 800x600 PNG
	body, ct := pngUpload(t, "me.png", 800, 600)
	rec := srv.upload(t, id, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody(t, rec)["photo"].(string)
	assert.True(t, strings.HasPrefix(first, "student_photos/"))

	// THEN: the stored file fits in 400x400
	f, err := os.Open(filepath.Join(srv.h.Config.PhotosDir, filepath.Base(first)))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	// WHEN: uploading again, the previous file is removed
	body, ct = pngUpload(t, "me2.png", 100, 100)
	rec = srv.upload(t, id, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err = os.Stat(filepath.Join(srv.h.Config.PhotosDir, filepath.Base(first)))
	assert.True(t, os.IsNotExist(err))

	// Wrong extension
	body, ct = pngUpload(t, "me.gif", 10, 10)
	rec = srv.upload(t, id, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only JPG and PNG images are allowed", decodeBody(t, rec)["message"])
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	srv.token = ""

	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.do(t, http.MethodGet, "/api/students", nil)
	rec = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `student_ledger_http_requests_total{code="401",method="GET"`)
}

func TestStatusSyncScheduler_RunNow(t *testing.T) {
	srv := newTestServer(t)
	student := srv.createStudent(t, "Ann Wambui", "ann@gmail.com")
	srv.createFee(t, student, 150000, "2026-03-20")

	// GIVEN: the due date passes
	srv.h.Ledger.Clock = generic.FixedClock(testToday.AddDate(0, 0, 30))

	sched := NewStatusSyncScheduler(srv.h)
	assert.False(t, sched.Enabled)
	assert.Equal(t, 1, sched.RunNow(context.Background()))
	assert.Equal(t, 0, sched.RunNow(context.Background()))
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
