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
  /api/users/*      Roster management
  /api/entries/*    Points ledger
  /api/dispenses/*  Slot allocation
  /api/days/*       Calendar day status and admin day controls
  /api/cpc/*        Command-leave queue
  /api/campaign     Campaign settings
  /api/releases/*   Override registries
  /api/seed         Demo data (dev only)

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
func NewRouter(h *Handler) *chi.Mux {
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
		// Roster routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.ArchiveUser)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/entries", h.ListUserEntries)
			r.Get("/{id}/dispenses", h.ListUserDispenses)
		})

		// Ledger routes
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", h.SubmitEntry)
			r.Get("/{id}", h.GetEntry)
			r.Post("/{id}/audit", h.AuditEntry)
		})
		r.Get("/natures", h.ListNatures)

		// Dispense routes
		r.Route("/dispenses", func(r chi.Router) {
			r.Post("/", h.RequestDispense)
			r.Post("/admin", h.AdminGrantDispense)
			r.Delete("/{id}", h.CancelDispense)
		})

		// Calendar day routes
		r.Route("/days/{date}", func(r chi.Router) {
			r.Get("/", h.GetDayStatus)
			r.Post("/block", h.BlockDay)
			r.Post("/unblock", h.UnblockDay)
			r.Post("/cancel-all", h.CancelAllForDay)
		})

		// CPC queue routes
		r.Get("/cpc/queue", h.GetQueue)

		// Campaign settings
		r.Get("/campaign", h.GetCampaign)
		r.Put("/campaign", h.UpdateCampaign)

		// Release registries
		r.Route("/releases", func(r chi.Router) {
			r.Route("/expirations", func(r chi.Router) {
				r.Get("/", h.ListExpirationReleases)
				r.Post("/", h.CreateExpirationRelease)
				r.Delete("/{id}", h.DeleteExpirationRelease)
			})
			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidayOverrides)
				r.Post("/", h.CreateHolidayOverride)
				r.Delete("/{id}", h.DeleteHolidayOverride)
			})
			r.Route("/birthdays", func(r chi.Router) {
				r.Get("/", h.ListBirthdayReleases)
				r.Post("/", h.CreateBirthdayRelease)
				r.Delete("/{id}", h.DeleteBirthdayRelease)
			})
		})

		// Demo data (dev only)
		r.Post("/seed", h.LoadSeedData)
	})

	return r
}
