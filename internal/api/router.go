package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Device routes sit outside the auth group: field units carry no
// operator credentials, and their identity is instead checked against
// the registry on every request, failing closed on unknown IDs.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Device surface: telemetry push and command relay
		r.Post("/sensor-data", s.handleSensorData)
		r.Post("/pump-command", s.handlePumpCommand)
		r.Get("/commands", s.handlePollCommands)
		r.Post("/commands/{id}/ack", s.handleAckCommand)

		// Operator surface
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/{id}", s.handleGetDevice)
			})
			r.Get("/actuators/{id}/logs", s.handleActuatorLogs)
			r.Get("/sensors/{id}/readings", s.handleSensorReadings)
			r.Get("/commands/{id}", s.handleGetCommand)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", s.metrics.handler())

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"devices": s.registry.DeviceCount(),
	})
}
