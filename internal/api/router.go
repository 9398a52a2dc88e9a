package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/weatherstation-core/internal/dashboard"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	ui := http.StripPrefix("/dashboard", dashboard.Handler(s.cfg.DashboardDir))
	r.Handle("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently))
	r.Handle("/dashboard/*", ui)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Get("/telemetry", s.handleGetTelemetry)
		r.Get("/telemetry/{topic}", s.handleGetTopic)

		r.Get("/diagnostics", s.handleGetDiagnostics)
		r.Delete("/diagnostics", s.handleResetDiagnostics)

		r.Route("/station", func(r chi.Router) {
			r.Post("/enable", s.handleEnable)
			r.Post("/disable", s.handleDisable)
			r.Post("/clear-fault", s.handleClearFault)
		})

		r.Get("/cycles", s.handleListCycles)
		r.Get("/faults", s.handleListFaults)

		r.Get("/schema", s.handleGetSchema)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"state":   s.service.State(),
	})
}
