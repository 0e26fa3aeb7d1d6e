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
  4. CORS:       Cross-origin requests for the office frontend

ROUTE GROUPS:
  /api/students/*    Student records, statements, collection
  /api/payments/*    Payment cancellation
  /api/fees/*        Fee rule catalog and amounts
  /api/settings      Fee configuration
  /api/reports/*     Due report, ledger, summary
  /api/sales/*       Form and inventory sales
  /api/scenarios/*   Demo scenarios

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
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, refresher *SummaryRefresher) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Student routes
		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Post("/", h.CreateStudent)
			r.Get("/{admissionNo}", h.GetStudent)
			r.Get("/{admissionNo}/statement", h.GetStatement)
			r.Get("/{admissionNo}/payments", h.ListPayments)
			r.Post("/{admissionNo}/payments", h.RecordPayment)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Delete("/{id}", h.CancelPayment)
		})

		// Fee catalog routes
		r.Route("/fees", func(r chi.Router) {
			r.Get("/rules", h.ListRules)
			r.Post("/rules", h.CreateRule)
			r.Get("/amounts", h.ListAmounts)
			r.Post("/amounts", h.CreateAmount)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/dues", h.GetDueReport)
			r.Get("/ledger", h.GetLedger)
			if refresher != nil {
				r.Get("/summary", refresher.GetSummary)
				r.Post("/summary/refresh", refresher.RefreshNow)
			}
		})

		// Sales routes
		r.Route("/sales", func(r chi.Router) {
			r.Post("/forms", h.SellForm)
			r.Post("/inventory", h.SellInventory)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
