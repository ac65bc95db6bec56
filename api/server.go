/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counters by route pattern
  5. CORS:       Cross-origin requests for the browser client

ROUTE GROUPS:
  /health               Liveness + database ping (public)
  /metrics              Prometheus exposition (public)
  /auth/*               Register / login (public), verify (token)
  /api/*                School data (token required)
  /api/scenarios/*      Demo scenarios (token, only when demo_enabled)
  /*                    Static files from static_dir

STATIC FILE SERVING:
  Serves the browser client and uploaded photos from static_dir.
  Unknown paths fall back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: RequireAuth
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(h.Config.CORSOrigins),
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(h.RequireAuth).Get("/verify", h.Verify)
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/search/{name}", h.SearchStudents)
			r.Get("/{id}", h.GetStudent)
			r.Put("/{id}", h.UpdateStudent)
			r.Delete("/{id}", h.DeleteStudent)
			r.Get("/{id}/qrcode", h.StudentQRCode)
			r.Post("/{id}/photo", h.UploadPhoto)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Post("/", h.RecordAttendance)
			r.Get("/student/{id}", h.StudentAttendance)
		})

		// Result routes
		r.Route("/results", func(r chi.Router) {
			r.Get("/", h.ListResults)
			r.Post("/", h.CreateResult)
			r.Get("/student/{id}", h.StudentResults)
		})

		// Fee routes
		r.Route("/fees", func(r chi.Router) {
			r.Get("/", h.ListFees)
			r.Post("/", h.CreateFee)
			r.Get("/student/{id}", h.StudentFees)
			r.Post("/pay", h.PayFee)
		})

		r.Get("/analytics/insights", h.Insights)

		// Export routes
		r.Route("/export", func(r chi.Router) {
			r.Get("/fees.xlsx", h.ExportFees)
			r.Get("/heatmap.xlsx", h.ExportHeatmap)
		})

		// Scenario routes
		if h.Config.DemoEnabled {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	// Serve static files (browser client, student photos)
	staticDir := h.Config.StaticDir
	if staticDir == "" {
		return r
	}
	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))

			// Check if file exists
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				index := filepath.Join(staticDir, "index.html")
				if _, err := os.Stat(index); err != nil {
					http.NotFound(w, r)
					return
				}
				// SPA routing: serve index.html
				http.ServeFile(w, r, index)
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	}

	return r
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, Envelope{Success: false, Message: "Database unavailable"})
		return
	}
	writeOK(w, http.StatusOK, "OK", nil)
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
