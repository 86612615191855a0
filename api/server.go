/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/calendars/*      Calendar and assignment management
  /api/employees/*      Per-employee views (day, leave, attendance)
  /api/leave/*          Leave requests and balances
  /api/attendance/*     Check-in/out, manual entry, logs

SECURITY NOTE:
  No authentication middleware. The acting user arrives as X-Actor-Id /
  X-Actor-Role headers set by an upstream gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Calendar routes
		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", h.ListCalendars)
			r.Post("/", h.CreateCalendar)
			r.Get("/{id}", h.GetCalendar)
			r.Put("/{id}", h.ReplaceCalendar)
			r.Delete("/{id}", h.DeleteCalendar)
			r.Post("/{id}/assignments", h.AssignCalendar)
		})

		// Per-employee views
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/day", h.ResolveDay)
			r.Delete("/calendar", h.UnassignCalendar)
			r.Get("/leave/requests", h.ListLeaveRequests)
			r.Get("/leave/balances", h.GetLeaveBalances)
			r.Get("/attendance", h.GetAttendance)
		})

		// Leave routes
		r.Route("/leave", func(r chi.Router) {
			r.Post("/requests", h.CreateLeaveRequest)
			r.Post("/requests/{id}/status", h.SetLeaveStatus)
			r.Post("/requests/{id}/cancel", h.CancelLeaveRequest)
			r.Delete("/requests/{id}", h.DeleteLeaveRequest)
			r.Put("/balances", h.ProvisionBalance)
		})

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/clock-in", h.ClockIn)
			r.Post("/clock-out", h.ClockOut)
			r.Post("/manual", h.ManualAttendance)
			r.Patch("/records/{id}", h.UpdateAttendance)
			r.Get("/records/{id}/logs", h.GetAttendanceLogs)
		})
	})

	return r
}
