// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tupichanga/courtbook/internal/api"
	"github.com/tupichanga/courtbook/internal/api/auth"
	"github.com/tupichanga/courtbook/internal/api/bookings"
	"github.com/tupichanga/courtbook/internal/api/courts"
	"github.com/tupichanga/courtbook/internal/api/venues"
	"github.com/tupichanga/courtbook/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithRequestID,
		api.WithLogging,
		api.WithRecovery,
		api.WithAuth,
	)

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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth and profile
	mux.HandleFunc("POST /api/v1/auth/register", auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/profile", auth.HandleProfile)
	mux.HandleFunc("PUT /api/v1/profile", auth.HandleUpdateProfile)

	// Venues
	mux.HandleFunc("GET /api/v1/venues", venues.HandleList)
	mux.HandleFunc("POST /api/v1/venues", venues.HandleCreate)
	mux.HandleFunc("GET /api/v1/venues/{id}", venues.HandleGet)
	mux.HandleFunc("PUT /api/v1/venues/{id}", venues.HandleUpdate)
	mux.HandleFunc("GET /api/v1/venues/{id}/stats", venues.HandleStats)
	mux.HandleFunc("GET /api/v1/owner/venues", venues.HandleOwnerList)

	// Courts
	mux.HandleFunc("POST /api/v1/venues/{id}/courts", courts.HandleCreate)
	mux.HandleFunc("GET /api/v1/venues/{id}/courts", courts.HandleListByVenue)
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGet)
	mux.HandleFunc("PUT /api/v1/courts/{id}", courts.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/courts/{id}", courts.HandleDelete)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/booked-hours", courts.HandleBookedHours)
	mux.HandleFunc("GET /api/v1/courts/{id}/schedule", courts.HandleGetWeekSchedule)
	mux.HandleFunc("GET /api/v1/courts/{id}/schedule/{day}", courts.HandleGetSchedule)
	mux.HandleFunc("PUT /api/v1/courts/{id}/schedule/{day}", courts.HandlePutSchedule)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreate)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleListMine)
	mux.HandleFunc("GET /api/v1/bookings/upcoming", bookings.HandleUpcoming)
	mux.HandleFunc("GET /api/v1/owner/bookings", bookings.HandleOwnerList)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/reschedule", bookings.HandleReschedule)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/status", bookings.HandleStatus)
}
