package api

import (
	"context"
	"net/http"

	"github.com/warp/student-ledger/insights"
	"go.uber.org/zap"
)

// =============================================================================
// ANALYTICS HANDLERS
// =============================================================================

// Insights returns the at-risk students and the subject/term heatmap.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	in, err := h.loadInsights(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err, "Error generating insights")
		return
	}
	writeOK(w, http.StatusOK, "", in)
}

// loadInsights serves from the cache when possible. Cache errors degrade
// to a fresh computation.
func (h *Handler) loadInsights(ctx context.Context) (insights.Insights, error) {
	cached, err := h.Cache.Get(ctx)
	if err != nil {
		h.Log.Warn("insights cache read failed", zap.Error(err))
	}
	if cached != nil {
		h.Metrics.InsightsCache.WithLabelValues("hit").Inc()
		return *cached, nil
	}
	h.Metrics.InsightsCache.WithLabelValues("miss").Inc()

	students, err := h.Store.ListStudents(ctx)
	if err != nil {
		return insights.Insights{}, err
	}
	attendance, err := h.Store.ListAttendance(ctx)
	if err != nil {
		return insights.Insights{}, err
	}
	results, err := h.Store.ListResults(ctx)
	if err != nil {
		return insights.Insights{}, err
	}

	in := insights.Compute(students, attendance, results)
	if err := h.Cache.Set(ctx, in); err != nil {
		h.Log.Warn("insights cache write failed", zap.Error(err))
	}
	return in, nil
}
