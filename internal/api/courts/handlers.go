// Package courts exposes court CRUD, availability and schedule endpoints.
package courts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/api/apiutil"
	"github.com/tupichanga/courtbook/internal/api/authz"
	"github.com/tupichanga/courtbook/internal/booking"
	"github.com/tupichanga/courtbook/internal/clock"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/request"
	"github.com/tupichanga/courtbook/internal/schedule"
	"github.com/tupichanga/courtbook/internal/store"
)

var (
	queries         *store.Store
	bookingService  *booking.Service
	scheduleService *schedule.Service
	clk             clock.Clock
	queriesOnce     sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(st *store.Store, bookingSvc *booking.Service, scheduleSvc *schedule.Service, c clock.Clock) {
	if st == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = st
		bookingService = bookingSvc
		scheduleService = scheduleSvc
		clk = c
	})
}

type courtResponse struct {
	ID           int64     `json:"id"`
	VenueID      int64     `json:"venueId"`
	Name         string    `json:"name"`
	Sport        string    `json:"sport"`
	Surface      string    `json:"surface,omitempty"`
	PricePerHour float64   `json:"pricePerHour"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toCourtResponse(c domain.Court) courtResponse {
	return courtResponse{
		ID:           c.ID,
		VenueID:      c.VenueID,
		Name:         c.Name,
		Sport:        c.Sport,
		Surface:      c.Surface,
		PricePerHour: c.PricePerHour,
		CreatedAt:    c.CreatedAt,
	}
}

type courtPayload struct {
	Name         string  `json:"name"`
	Sport        string  `json:"sport"`
	Surface      string  `json:"surface"`
	PricePerHour float64 `json:"pricePerHour"`
}

func (p *courtPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Sport = strings.TrimSpace(p.Sport)
	if p.Name == "" || p.Sport == "" {
		return errors.New("name and sport are required")
	}
	if p.PricePerHour < 0 {
		return errors.New("pricePerHour must not be negative")
	}
	return nil
}

// POST /api/v1/venues/{id}/courts
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	venueID, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	venue, err := queries.GetVenue(r.Context(), venueID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if venue.OwnerID != user.ID {
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return
	}

	var payload courtPayload
	if err := apiutil.DecodeJSON(w, r, &payload); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	id, err := queries.CreateCourt(r.Context(), domain.Court{
		VenueID:      venueID,
		Name:         payload.Name,
		Sport:        payload.Sport,
		Surface:      payload.Surface,
		PricePerHour: payload.PricePerHour,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	court, err := queries.GetCourt(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("court_id", id).
		Int64("venue_id", venueID).
		Msg("Court created")

	apiutil.WriteJSON(w, http.StatusCreated, toCourtResponse(court))
}

// GET /api/v1/venues/{id}/courts
func HandleListByVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	courts, err := queries.ListCourtsByVenue(r.Context(), venueID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result := make([]courtResponse, 0, len(courts))
	for _, c := range courts {
		result = append(result, toCourtResponse(c))
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}

// GET /api/v1/courts/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	court, err := queries.GetCourt(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toCourtResponse(court))
}

// PUT /api/v1/courts/{id}
func HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	if !requireCourtOwnership(w, r, id, user.ID) {
		return
	}

	var payload courtPayload
	if err := apiutil.DecodeJSON(w, r, &payload); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	court, err := queries.GetCourt(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	court.Name = payload.Name
	court.Sport = payload.Sport
	court.Surface = payload.Surface
	court.PricePerHour = payload.PricePerHour

	if err := queries.UpdateCourt(r.Context(), court); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toCourtResponse(court))
}

// DELETE /api/v1/courts/{id}
func HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	if !requireCourtOwnership(w, r, id, user.ID) {
		return
	}

	active, err := queries.CountActiveBookings(r.Context(), id, clk.Now())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if active > 0 {
		apiutil.WriteError(w, r, domain.ErrCourtInUse)
		return
	}

	if err := queries.DeleteCourt(r.Context(), id); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().Int64("court_id", id).Msg("Court deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/courts/{id}/availability?date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	date, err := request.ParseDate(r, "date")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	slots, err := bookingService.Slots(r.Context(), id, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, slots)
}

// GET /api/v1/courts/{id}/booked-hours?date=YYYY-MM-DD
//
// Returns the wall-clock start times of every booking on the date,
// regardless of status. Reschedule pickers gray these out.
func HandleBookedHours(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	date, err := request.ParseDate(r, "date")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	starts, err := queries.StartsBetween(r.Context(), id, dayStart, dayEnd)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	hours := make([]string, 0, len(starts))
	for _, s := range starts {
		hours = append(hours, s.Format("15:04"))
	}
	apiutil.WriteJSON(w, http.StatusOK, hours)
}

type windowResponse struct {
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Price     float64 `json:"price"`
}

// GET /api/v1/courts/{id}/schedule/{day}
func HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	day, err := parseDay(r)
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	windows, err := scheduleService.ForDay(r.Context(), id, day)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result := make([]windowResponse, 0, len(windows))
	for _, win := range windows {
		result = append(result, windowResponse{
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
			Price:     win.Price,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}

type weekWindowResponse struct {
	DayOfWeek int     `json:"dayOfWeek"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Price     float64 `json:"price"`
}

// GET /api/v1/courts/{id}/schedule
//
// Returns the full weekly schedule; the editor loads this once and then
// writes back one day at a time.
func HandleGetWeekSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	windows, err := scheduleService.ForCourt(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result := make([]weekWindowResponse, 0, len(windows))
	for _, win := range windows {
		result = append(result, weekWindowResponse{
			DayOfWeek: win.DayOfWeek,
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
			Price:     win.Price,
		})
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}

type putSchedulePayload struct {
	Windows []windowResponse `json:"windows"`
}

// PUT /api/v1/courts/{id}/schedule/{day}
func HandlePutSchedule(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	day, err := parseDay(r)
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	var payload putSchedulePayload
	if err := apiutil.DecodeJSON(w, r, &payload); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	windows := make([]schedule.WindowInput, 0, len(payload.Windows))
	for _, win := range payload.Windows {
		windows = append(windows, schedule.WindowInput{
			StartTime: win.StartTime,
			EndTime:   win.EndTime,
			Price:     win.Price,
		})
	}

	if err := scheduleService.ReplaceDay(r.Context(), id, day, windows, user.Actor()); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireCourtOwnership(w http.ResponseWriter, r *http.Request, courtID, userID int64) bool {
	ownerID, _, err := queries.CourtOwner(r.Context(), courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return false
	}
	if ownerID != userID {
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return false
	}
	return true
}

func parseDay(r *http.Request) (int, error) {
	raw := r.PathValue("day")
	day, err := strconv.Atoi(raw)
	if err != nil || day < 0 || day > 6 {
		return 0, errors.New("day must be 0 (Sunday) through 6 (Saturday)")
	}
	return day, nil
}
