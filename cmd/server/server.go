// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/padelhq/courtbook/internal/api"
	"github.com/padelhq/courtbook/internal/api/availability"
	"github.com/padelhq/courtbook/internal/api/bookings"
	"github.com/padelhq/courtbook/internal/api/clubs"
	"github.com/padelhq/courtbook/internal/api/courts"
	"github.com/padelhq/courtbook/internal/api/invites"
	"github.com/padelhq/courtbook/internal/api/planning"
	"github.com/padelhq/courtbook/internal/config"
	"github.com/padelhq/courtbook/internal/db"
	"github.com/padelhq/courtbook/internal/email"
	"github.com/padelhq/courtbook/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, limiter *ratelimit.Limiter, sender email.Sender) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithSession,
		api.WithRequestID,
	)

	availability.InitHandlers(database, cfg.Booking.SlotMinutes)
	planning.InitHandlers(database, cfg.Booking.SlotMinutes)
	bookings.InitHandlers(bookings.Deps{
		DB:          database,
		Limiter:     limiter,
		Sender:      sender,
		StaffSender: cfg.Email.StaffSender,
		SlotMinutes: cfg.Booking.SlotMinutes,
	})
	clubs.InitHandlers(database.Queries)
	courts.InitHandlers(database.Queries)
	invites.InitHandlers(database)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability and planning
	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailability)
	mux.HandleFunc("GET /api/v1/club/planning", planning.HandlePlanning)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)

	// Clubs and courts
	mux.HandleFunc("GET /api/v1/clubs", clubs.HandleClubsList)
	mux.HandleFunc("GET /api/v1/clubs/{id}", clubs.HandleClubGet)
	mux.HandleFunc("PUT /api/v1/clubs/{id}/hours", clubs.HandleClubHoursUpdate)
	mux.HandleFunc("GET /api/v1/courts", courts.HandleCourtsList)
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCourtCreate)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleCourtUpdate)

	// Staff invites
	mux.HandleFunc("POST /api/v1/invites", invites.HandleInviteCreate)
	mux.HandleFunc("GET /api/v1/invites/validate", invites.HandleInviteValidate)
	mux.HandleFunc("POST /api/v1/invites/redeem", invites.HandleInviteRedeem)
}
