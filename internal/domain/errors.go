package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrRoleNotAllowed  = errors.New("role not allowed for this operation")
	ErrPastDate        = errors.New("start time is in the past")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrInvalidState    = errors.New("operation not valid for current booking status")
	ErrInvalidStatus   = errors.New("invalid booking status")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidWindow   = errors.New("invalid schedule window")
	ErrWindowOverlap   = errors.New("schedule windows overlap")
	ErrCourtInUse      = errors.New("court has active bookings")
)
