package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each Handler owns its registry so
// tests can build many handlers without duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Payments        *prometheus.CounterVec
	InsightsCache   *prometheus.CounterVec
	StatusSyncs     prometheus.Counter
	LoginFailures   prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_ledger_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "student_ledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_ledger_payments_total",
			Help: "Payment attempts by outcome.",
		}, []string{"outcome"}),
		InsightsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_ledger_insights_cache_total",
			Help: "Insights cache lookups by result.",
		}, []string{"result"}),
		StatusSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "student_ledger_status_sync_updates_total",
			Help: "Cached invoice statuses rewritten by the status sync.",
		}),
		LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "student_ledger_login_failures_total",
			Help: "Rejected login attempts.",
		}),
	}
	m.Registry.MustRegister(
		m.Requests, m.RequestDuration, m.Payments, m.InsightsCache, m.StatusSyncs, m.LoginFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern,
// keeping label cardinality independent of ids in the path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
