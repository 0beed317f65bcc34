/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontends

SECURITY NOTE:
  No authentication middleware. The ledger trusts that callers were
  authenticated upstream; wallet ownership arrives as a caller-identified
  user_id.

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
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", h.Health)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/wallet", h.CreateWallet)
		r.Get("/balance/{user_id}", h.GetBalance)
		r.Post("/add-funds", h.AddFunds)
		r.Post("/deduct-funds", h.DeductFunds)
		r.Post("/transfer", h.Transfer)
		r.Get("/transactions/{user_id}", h.GetTransactions)
	})

	return r
}
