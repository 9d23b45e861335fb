/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/simulator/*      Simulation runs, FUE pivot, roles, reference data
  /api/data/*           Dataset uploads (baseline, reference, user roles)
  /api/health           Liveness
  /metrics              Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/license-engine/obs"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Simulation routes
		r.Route("/simulator", func(r chi.Router) {
			r.Post("/runs", h.SubmitSimulation)
			r.Get("/runs", h.ListSimulationResults)
			r.Get("/fue", h.GetFUEPivot)
			r.Get("/roles", h.ListRoles)
			r.Get("/roles/{role}", h.GetRoleObjects)
			r.Get("/reference", h.GetAddSuggestions)
		})

		// Data loading routes
		r.Route("/data", func(r chi.Router) {
			r.Post("/baseline", h.LoadBaseline)
			r.Post("/reference", h.LoadReference)
			r.Post("/user-roles", h.LoadUserRoles)
		})

		r.Get("/health", h.Health)
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", obs.Handler())

	return r
}
