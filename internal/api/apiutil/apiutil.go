// Package apiutil holds JSON encoding helpers and the error-to-status
// mapping shared by all HTTP handlers.
package apiutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/api/authz"
	"github.com/tupichanga/courtbook/internal/domain"
)

const maxBodyBytes = 1 << 20

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields
// and oversized payloads.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteError maps domain and authz errors to HTTP statuses and writes a
// JSON error body. Unmapped errors become 500s with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		msg = "internal server error"
	}
	WriteJSON(w, status, errorResponse{Error: msg})
}

// WriteBadRequest reports a malformed request without touching the error
// mapping table.
func WriteBadRequest(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrRoleNotAllowed),
		errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSlotUnavailable),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrCourtInUse):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPastDate),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrWindowOverlap):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteTooManyRequests reports a rate-limited request with a Retry-After
// hint in whole seconds.
func WriteTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	WriteJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
}

// RequireUser returns the request's principal or writes a 401 and returns
// nil.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.Principal {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		WriteError(w, r, authz.ErrUnauthenticated)
		return nil
	}
	return user
}
