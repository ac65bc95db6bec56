/*
Package insights turns attendance and exam results into the analytics view:
per-student metrics, the at-risk list and the subject x term heatmap.

PURPOSE:
  Compute is a pure function of its three inputs. It never fails on
  missing data: a student without attendance or results gets nil metrics
  and is never flagged.

METRICS:
  attendancePercent = present / total * 100        (1 decimal, nil if total = 0)
  latestAverage     = mean(marks at max created_at) (1 decimal, nil if no results)

  Results that share the latest created_at instant are pooled into one
  average; ties are not broken.

AT-RISK:
  attendancePercent != nil && attendancePercent < 75 &&
  latestAverage     != nil && latestAverage     < 40

  Both comparisons are strict and use the rounded values. A student at
  exactly 75.0% attendance is never at risk.

HEATMAP:
  Subjects and terms are the distinct values across all results, sorted
  ascending. Values[term][subject] is the rounded mean of that pair, or nil
  when no result matches it. A blank subject counts as "General" and a
  blank term as "Term".

SEE ALSO:
  - cache.go: Optional Redis cache in front of Compute
  - api/analytics.go: GET /api/analytics/insights
  - report/report.go: XLSX export of the heatmap
*/
package insights

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/generic"
)

// Thresholds of the at-risk predicate.
var (
	AttendanceThreshold = decimal.NewFromInt(75)
	AverageThreshold    = decimal.NewFromInt(40)
)

// Fallback labels for results with blank subject or term.
const (
	FallbackSubject = "General"
	FallbackTerm    = "Term"
)

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// StudentInsight holds the metrics of one student.
type StudentInsight struct {
	ID                generic.StudentID `json:"id"`
	Name              string            `json:"name"`
	Course            string            `json:"course"`
	AttendancePercent *float64          `json:"attendancePercent"`
	LatestAverage     *float64          `json:"latestAverage"`
	AtRisk            bool              `json:"atRisk"`
}

// Heatmap is the term x subject grid of average marks.
type Heatmap struct {
	Subjects []string     `json:"subjects"`
	Terms    []string     `json:"terms"`
	Values   [][]*float64 `json:"values"`
}

// Value returns the cell of (term, subject), or nil when either label is
// unknown or the pair has no results.
func (h Heatmap) Value(term, subject string) *float64 {
	ti := indexOf(h.Terms, term)
	si := indexOf(h.Subjects, subject)
	if ti < 0 || si < 0 {
		return nil
	}
	return h.Values[ti][si]
}

// Insights is the full analytics view.
type Insights struct {
	AtRiskStudents []StudentInsight `json:"atRiskStudents"`
	Students       []StudentInsight `json:"students"`
	Heatmap        Heatmap          `json:"heatmap"`
}

// =============================================================================
// COMPUTE
// =============================================================================

type attendanceTally struct {
	present int64
	total   int64
}

type latestExam struct {
	at    time.Time
	sum   int64
	count int64
}

type cell struct {
	sum   int64
	count int64
}

// Compute builds the analytics view. Students are reported in name order.
func Compute(students []academics.Student, attendance []academics.AttendanceRecord, results []academics.Result) Insights {
	tallies := make(map[generic.StudentID]*attendanceTally)
	for _, a := range attendance {
		if a.StudentID == 0 {
			continue
		}
		t := tallies[a.StudentID]
		if t == nil {
			t = &attendanceTally{}
			tallies[a.StudentID] = t
		}
		t.total++
		if a.Status == academics.Present {
			t.present++
		}
	}

	latest := make(map[generic.StudentID]*latestExam)
	for _, r := range results {
		if r.StudentID == 0 {
			continue
		}
		e := latest[r.StudentID]
		switch {
		case e == nil || r.CreatedAt.After(e.at):
			latest[r.StudentID] = &latestExam{at: r.CreatedAt, sum: int64(r.Marks), count: 1}
		case r.CreatedAt.Equal(e.at):
			e.sum += int64(r.Marks)
			e.count++
		}
	}

	ordered := make([]academics.Student, len(students))
	copy(ordered, students)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name == ordered[j].Name {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Name < ordered[j].Name
	})

	out := Insights{
		AtRiskStudents: []StudentInsight{},
		Students:       make([]StudentInsight, 0, len(ordered)),
		Heatmap:        buildHeatmap(results),
	}
	for _, s := range ordered {
		si := StudentInsight{ID: s.ID, Name: s.Name, Course: s.Course}

		var att, avg *decimal.Decimal
		if t := tallies[s.ID]; t != nil && t.total > 0 {
			v := generic.Ratio(t.present*100, t.total).Round(1)
			att = &v
			si.AttendancePercent = generic.Round1Ptr(v)
		}
		if e := latest[s.ID]; e != nil {
			v := generic.Ratio(e.sum, e.count).Round(1)
			avg = &v
			si.LatestAverage = generic.Round1Ptr(v)
		}
		si.AtRisk = IsAtRisk(att, avg)

		out.Students = append(out.Students, si)
		if si.AtRisk {
			out.AtRiskStudents = append(out.AtRiskStudents, si)
		}
	}
	return out
}

// IsAtRisk applies the at-risk predicate to rounded metrics. Missing
// metrics never flag a student.
func IsAtRisk(attendancePercent, latestAverage *decimal.Decimal) bool {
	return attendancePercent != nil && attendancePercent.LessThan(AttendanceThreshold) &&
		latestAverage != nil && latestAverage.LessThan(AverageThreshold)
}

func buildHeatmap(results []academics.Result) Heatmap {
	cells := make(map[[2]string]*cell)
	subjectSet := make(map[string]bool)
	termSet := make(map[string]bool)

	for _, r := range results {
		subject, term := r.Subject, r.Term
		if subject == "" {
			subject = FallbackSubject
		}
		if term == "" {
			term = FallbackTerm
		}
		subjectSet[subject] = true
		termSet[term] = true

		key := [2]string{term, subject}
		c := cells[key]
		if c == nil {
			c = &cell{}
			cells[key] = c
		}
		c.sum += int64(r.Marks)
		c.count++
	}

	h := Heatmap{
		Subjects: sortedKeys(subjectSet),
		Terms:    sortedKeys(termSet),
	}
	h.Values = make([][]*float64, len(h.Terms))
	for ti, term := range h.Terms {
		row := make([]*float64, len(h.Subjects))
		for si, subject := range h.Subjects {
			if c := cells[[2]string{term, subject}]; c != nil {
				row[si] = generic.Round1Ptr(generic.Ratio(c.sum, c.count))
			}
		}
		h.Values[ti] = row
	}
	return h
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
