// Package bookings exposes the booking lifecycle endpoints.
package bookings

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/tupichanga/courtbook/internal/api/apiutil"
	"github.com/tupichanga/courtbook/internal/booking"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/request"
	"github.com/tupichanga/courtbook/internal/store"
)

var (
	service     *booking.Service
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *booking.Service) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
	})
}

type bookingResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	CourtID    int64     `json:"courtId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UserName   string    `json:"userName,omitempty"`
	UserEmail  string    `json:"userEmail,omitempty"`
	CourtName  string    `json:"courtName,omitempty"`
	VenueName  string    `json:"venueName,omitempty"`
}

func toBookingResponse(row store.BookingRow) bookingResponse {
	return bookingResponse{
		ID:         row.ID,
		UserID:     row.UserID,
		CourtID:    row.CourtID,
		StartTime:  row.StartTime,
		EndTime:    row.EndTime,
		TotalPrice: row.TotalPrice,
		Status:     string(row.Status),
		CreatedAt:  row.CreatedAt,
		UserName:   row.UserName,
		UserEmail:  row.UserEmail,
		CourtName:  row.CourtName,
		VenueName:  row.VenueName,
	}
}

func toBookingResponses(rows []store.BookingRow) []bookingResponse {
	result := make([]bookingResponse, 0, len(rows))
	for _, row := range rows {
		result = append(result, toBookingResponse(row))
	}
	return result
}

type createRequest struct {
	CourtID   int64   `json:"courtId"`
	StartTime string  `json:"startTime"`
	Price     float64 `json:"price"`
}

// POST /api/v1/bookings
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}
	if req.CourtID <= 0 {
		apiutil.WriteBadRequest(w, errors.New("courtId is required"))
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		apiutil.WriteBadRequest(w, errors.New("startTime must be RFC 3339"))
		return
	}

	id, err := service.Create(r.Context(), booking.CreateInput{
		CourtID:       req.CourtID,
		Start:         start,
		ProposedPrice: req.Price,
		Actor:         user.Actor(),
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GET /api/v1/bookings
func HandleListMine(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	rows, err := service.ForUser(r.Context(), user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toBookingResponses(rows))
}

// GET /api/v1/bookings/upcoming
func HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	rows, err := service.Upcoming(r.Context(), user.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, toBookingResponses(rows))
}

type ownerPageResponse struct {
	Bookings   []bookingResponse `json:"bookings"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalCount int               `json:"totalCount"`
	TotalPages int               `json:"totalPages"`
}

// GET /api/v1/owner/bookings?page=&pageSize=&courtId=
func HandleOwnerList(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	page, pageSize := request.ParsePage(r, 10)
	courtID, err := request.OptionalID(r, "courtId")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	result, err := service.ForOwner(r.Context(), user.Actor(), page, pageSize, courtID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, ownerPageResponse{
		Bookings:   toBookingResponses(result.Bookings),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

type rescheduleRequest struct {
	StartTime string `json:"startTime"`
}

// PUT /api/v1/bookings/{id}/reschedule
func HandleReschedule(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	var req rescheduleRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		apiutil.WriteBadRequest(w, errors.New("startTime must be RFC 3339"))
		return
	}

	if err := service.Reschedule(r.Context(), id, start, user.Actor()); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

// PUT /api/v1/bookings/{id}/status
func HandleStatus(w http.ResponseWriter, r *http.Request) {
	user := apiutil.RequireUser(w, r)
	if user == nil {
		return
	}

	id, err := request.ParseID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	var req statusRequest
	if err := apiutil.DecodeJSON(w, r, &req); err != nil {
		apiutil.WriteBadRequest(w, err)
		return
	}

	err = service.UpdateStatus(r.Context(), id, domain.BookingStatus(req.Status), user.Actor())
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
