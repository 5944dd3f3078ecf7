// Package venues exposes the venue CRUD and owner dashboard endpoints.
package venues

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/api/apiutil"
	"github.com/tupichanga/courtbook/internal/api/authz"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/request"
	"github.com/tupichanga/courtbook/internal/stats"
	"github.com/tupichanga/courtbook/internal/store"
)

var (
	queries      *store.Store
	statsService *stats.Service
	queriesOnce  sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(st *store.Store, statsSvc *stats.Service) {
	if st == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = st
		statsService = statsSvc
	})
}

type venueResponse struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"ownerId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	District     string    `json:"district,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	PaymentQRURL string    `json:"paymentQrUrl,omitempty"`
	MapsURL      string    `json:"mapsUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toVenueResponse(v domain.Venue) venueResponse {
	return venueResponse{
		ID:           v.ID,
		OwnerID:      v.OwnerID,
		Name:         v.Name,
		Description:  v.Description,
		Address:      v.Address,
		City:         v.City,
		District:     v.District,
		ImageURL:     v.ImageURL,
		PaymentQRURL: v.PaymentQRURL,
		MapsURL:      v.MapsURL,
		CreatedAt:    v.CreatedAt,
	}
}

type venuePayload struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	City         string `json:"city"`
	District     string `json:"district"`
	ImageURL     string `json:"imageUrl"`
	PaymentQRURL string `json:"paymentQrUrl"`
	MapsURL      string `json:"mapsUrl"`
}

func (p *venuePayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.City = strings.TrimSpace(p.City)
	if p.Name == "" || p.Address == "" || p.City == "" {
		return errors.New("name, address and city are required")
	}
	return nil
}

// GET /api/v1/venues
func HandleList(w http.ResponseWriter, r *http.Request) {
	venues, err := queries.ListVenues(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result := make([]venueResponse, 0, len(venues))
	for _, v := range venues {
		result = append(result, toVenueResponse(v))
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}

// GET /api/v1/owner/venues
func HandleOwnerList(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	if !authz.IsOwner(user) {
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return
	}

	venues, err := queries.ListVenuesByOwner(r.Context(), user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	result := make([]venueResponse, 0, len(venues))
	for _, v := range venues {
		result = append(result, toVenueResponse(v))
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}

// POST /api/v1/venues
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}
	if !authz.IsOwner(user) {
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return
	}

	var payload venuePayload
	if err := apiutil.DecodeJSON(w, r, &payload); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	id, err := queries.CreateVenue(r.Context(), domain.Venue{
		OwnerID:      user.ID,
		Name:         payload.Name,
		Description:  payload.Description,
		Address:      payload.Address,
		City:         payload.City,
		District:     payload.District,
		ImageURL:     payload.ImageURL,
		PaymentQRURL: payload.PaymentQRURL,
		MapsURL:      payload.MapsURL,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	venue, err := queries.GetVenue(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Int64("venue_id", id).
		Int64("owner_id", user.ID).
		Msg("Venue created")

	apiutil.WriteJSON(w, http.StatusCreated, toVenueResponse(venue))
}

// GET /api/v1/venues/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	venue, err := queries.GetVenue(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toVenueResponse(venue))
}

// PUT /api/v1/venues/{id}
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

	venue, err := queries.GetVenue(r.Context(), id)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if venue.OwnerID != user.ID {
		apiutil.WriteError(w, r, authz.ErrForbidden)
		return
	}

	var payload venuePayload
	if err := apiutil.DecodeJSON(w, r, &payload); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	venue.Name = payload.Name
	venue.Description = payload.Description
	venue.Address = payload.Address
	venue.City = payload.City
	venue.District = payload.District
	venue.ImageURL = payload.ImageURL
	venue.PaymentQRURL = payload.PaymentQRURL
	venue.MapsURL = payload.MapsURL

	if err := queries.UpdateVenue(r.Context(), venue); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toVenueResponse(venue))
}

// GET /api/v1/venues/{id}/stats
func HandleStats(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	result, err := statsService.VenueStats(r.Context(), id, user.Actor())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, result)
}
