/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with a small
	school: students, attendance, exam results and fee invoices that show
	off specific features.

AVAILABLE SCENARIOS:

	small-class: Five students with a week of attendance and two terms of results
	at-risk:     Students on both sides of the 75% / 40 thresholds
	fee-ledger:  Invoices in every state: pending, overdue, partly paid, paid

HOW SCENARIOS WORK:
 1. Reset database (clear school data, accounts are kept)
 2. Create students
 3. Record attendance and results
 4. Create invoices and payments through the ledger

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "at-risk"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to scenarioLoader

NOTE:

	Scenarios reset the database. Routes are only mounted when demo_enabled
	is set.

SEE ALSO:
  - server.go: Route mounting
  - store/sqlite/sqlite.go: Reset
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-class",
		Name:        "Small Class",
		Description: "Five students with a week of attendance and two terms of results",
		Category:    "academics",
	},
	{
		ID:          "at-risk",
		Name:        "At-Risk Students",
		Description: "Students just above and below the attendance and average thresholds",
		Category:    "analytics",
	},
	{
		ID:          "fee-ledger",
		Name:        "Fee Ledger",
		Description: "Invoices that are pending, overdue, partly paid and fully paid",
		Category:    "fees",
	},
}

// ListScenarios returns the available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeList(w, scenarios)
}

// GetCurrentScenario returns the last loaded scenario id, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeOK(w, http.StatusOK, "", nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeOK(w, http.StatusOK, "", s)
			return
		}
	}
	writeOK(w, http.StatusOK, "", nil)
}

// LoadScenario resets the database and loads one scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, r, err, "Error loading scenario")
		return
	}
	load := h.scenarioLoader(req.ScenarioID)
	if load == nil {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		h.writeDomainError(w, r, err, "Error resetting database")
		return
	}
	h.invalidateInsights(r)
	if err := load(ctx); err != nil {
		h.writeDomainError(w, r, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err), "Error loading scenario")
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeOK(w, http.StatusOK, "Scenario loaded", map[string]string{"scenario_id": req.ScenarioID})
}

// ResetDatabase clears all school data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeDomainError(w, r, err, "Error resetting database")
		return
	}
	h.invalidateInsights(r)

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeOK(w, http.StatusOK, "Database reset", nil)
}

func (h *Handler) scenarioLoader(id string) func(context.Context) error {
	switch id {
	case "small-class":
		return h.loadSmallClassScenario
	case "at-risk":
		return h.loadAtRiskScenario
	case "fee-ledger":
		return h.loadFeeLedgerScenario
	}
	return nil
}

// =============================================================================
// LOADERS
// =============================================================================

type demoStudent struct {
	name   string
	age    int
	course string
}

func (h *Handler) createStudents(ctx context.Context, list []demoStudent) ([]generic.StudentID, error) {
	ids := make([]generic.StudentID, len(list))
	for i, s := range list {
		st, err := h.Store.CreateStudent(ctx, academics.StudentInput{
			Name:   s.name,
			Age:    s.age,
			Course: s.course,
			Email:  fmt.Sprintf("demo.student%d@gmail.com", i+1),
		})
		if err != nil {
			return nil, err
		}
		ids[i] = st.ID
	}
	return ids, nil
}

// recordDays writes one attendance mark per pattern letter, ending
// yesterday. P = present, A = absent, L = late.
func (h *Handler) recordDays(ctx context.Context, id generic.StudentID, pattern string) error {
	today := h.Ledger.Clock.Today()
	var records []academics.AttendanceRecord
	for i, c := range pattern {
		status := academics.Present
		switch c {
		case 'A':
			status = academics.Absent
		case 'L':
			status = academics.Late
		}
		records = append(records, academics.AttendanceRecord{
			StudentID: id,
			Date:      today.AddDays(i - len(pattern)),
			Status:    status,
		})
	}
	_, err := h.Store.InsertAttendance(ctx, records)
	return err
}

// recordExam writes one result per subject sharing the same timestamp, so
// they form one exam.
func (h *Handler) recordExam(ctx context.Context, id generic.StudentID, term string, at time.Time, marks map[string]int) error {
	for subject, m := range marks {
		res, err := academics.NewResult(id, subject, term, float64(m), "")
		if err != nil {
			return err
		}
		res.CreatedAt = at
		if _, err := h.Store.InsertResult(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadSmallClassScenario(ctx context.Context) error {
	ids, err := h.createStudents(ctx, []demoStudent{
		{"Amina Njoroge", 15, "Science"},
		{"Brian Otieno", 16, "Mathematics"},
		{"Chloe Wanjiru", 15, "Arts"},
		{"David Kamau", 17, "Science"},
		{"Esther Achieng", 16, "Mathematics"},
	})
	if err != nil {
		return err
	}

	patterns := []string{"PPPPP", "PPLPP", "PAPPP", "PPPPA", "LPPPP"}
	term1 := h.Ledger.Clock().AddDate(0, -3, 0)
	term2 := h.Ledger.Clock().AddDate(0, 0, -7)
	for i, id := range ids {
		if err := h.recordDays(ctx, id, patterns[i]); err != nil {
			return err
		}
		base := 60 + i*7
		if err := h.recordExam(ctx, id, "Term 1", term1, map[string]int{"Math": base, "English": base + 5}); err != nil {
			return err
		}
		if err := h.recordExam(ctx, id, "Term 2", term2, map[string]int{"Math": base + 3, "English": base + 8}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadAtRiskScenario(ctx context.Context) error {
	ids, err := h.createStudents(ctx, []demoStudent{
		{"Faith Muthoni", 14, "Science"},   // 60% attendance, latest 35: at risk
		{"George Mwangi", 15, "Arts"},      // 75% attendance, latest 30: not at risk
		{"Hellen Chebet", 14, "Science"},   // 60% attendance, latest 40: not at risk
		{"Ian Kiprono", 16, "Mathematics"}, // no results yet
	})
	if err != nil {
		return err
	}

	attendance := []string{"PPPAA", "PPPA", "PAPAP", "AAAA"}
	for i, id := range ids {
		if err := h.recordDays(ctx, id, attendance[i]); err != nil {
			return err
		}
	}

	older := h.Ledger.Clock().AddDate(0, -2, 0)
	latest := h.Ledger.Clock().AddDate(0, 0, -3)
	exams := []struct {
		old, recent map[string]int
	}{
		{map[string]int{"Math": 70}, map[string]int{"Math": 30, "English": 40}},
		{map[string]int{"Math": 80}, map[string]int{"Math": 30}},
		{map[string]int{"Math": 20}, map[string]int{"Math": 40, "English": 40}},
	}
	for i, e := range exams {
		if err := h.recordExam(ctx, ids[i], "Term 1", older, e.old); err != nil {
			return err
		}
		if err := h.recordExam(ctx, ids[i], "Term 2", latest, e.recent); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadFeeLedgerScenario(ctx context.Context) error {
	ids, err := h.createStudents(ctx, []demoStudent{
		{"Joy Atieno", 17, "Science"},
		{"Kevin Omondi", 16, "Arts"},
	})
	if err != nil {
		return err
	}
	today := h.Ledger.Clock.Today()
	lastMonth := today.AddDays(-30)
	nextMonth := today.AddDays(30)

	invoices := []struct {
		student generic.StudentID
		amount  float64
		due     generic.Date
		desc    string
		paid    []float64
	}{
		{ids[0], 45000, nextMonth, "Term 2 tuition", nil},                    // pending
		{ids[0], 150000, lastMonth, "Boarding, full year", []float64{50000}}, // overdue, partly paid
		{ids[1], 80000, lastMonth, "Term 1 tuition", []float64{30000}},       // pending: under threshold
		{ids[1], 12000, nextMonth, "Lab fees", []float64{5000, 7000}},        // paid
	}
	for _, inv := range invoices {
		due := inv.due
		id, err := h.Ledger.CreateInvoice(ctx, fees.Invoice{
			StudentID:   inv.student,
			Amount:      generic.NewMoney(inv.amount),
			DueDate:     &due,
			Description: inv.desc,
		})
		if err != nil {
			return err
		}
		for _, p := range inv.paid {
			if _, err := h.Ledger.RecordPayment(ctx, fees.PaymentRequest{
				InvoiceID: id,
				Amount:    generic.NewMoney(p),
				Method:    "bank",
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
