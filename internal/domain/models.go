// Package domain holds the entities and sentinel errors shared across the
// booking core. It has no dependencies on storage or transport.
package domain

import "time"

type Role string

const (
	RoleClient Role = "CLIENT"
	RoleOwner  Role = "OWNER"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusRejected  BookingStatus = "REJECTED"
	StatusCompleted BookingStatus = "COMPLETED"
)

// Valid reports whether s is one of the four recognized statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Blocks reports whether a booking in this status occupies its slot.
// REJECTED bookings never block.
func (s BookingStatus) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCompleted
}

// BlockingStatuses are the statuses that make a slot unavailable.
var BlockingStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted}

// Actor is an authenticated principal acting on the core. Authentication
// happens at the edge; the core only authorizes.
type Actor struct {
	ID   int64
	Role Role
}

type User struct {
	ID                 int64
	Email              string
	Name               string
	Phone              string
	ImageURL           string
	PasswordHash       string
	Role               Role
	Plan               string
	SubscriptionStatus string
	CreatedAt          time.Time
}

type Venue struct {
	ID           int64
	OwnerID      int64
	Name         string
	Description  string
	Address      string
	City         string
	District     string
	ImageURL     string
	PaymentQRURL string
	MapsURL      string
	CreatedAt    time.Time
}

type Court struct {
	ID           int64
	VenueID      int64
	Name         string
	Sport        string
	Surface      string
	PricePerHour float64
	CreatedAt    time.Time
}

// ScheduleWindow is a weekly recurring price window for a court.
// DayOfWeek is 0=Sunday..6=Saturday; StartTime/EndTime are "HH:MM" on a
// 24h clock with StartTime < EndTime.
type ScheduleWindow struct {
	ID        int64
	CourtID   int64
	DayOfWeek int
	StartTime string
	EndTime   string
	Price     float64
}

type Booking struct {
	ID         int64
	UserID     int64
	CourtID    int64
	StartTime  time.Time
	EndTime    time.Time
	TotalPrice float64
	Status     BookingStatus
	CreatedAt  time.Time
}

// Slot is one bookable hour of a court on a given date.
type Slot struct {
	Time   string  `json:"time"`
	Price  float64 `json:"price"`
	Booked bool    `json:"isBooked"`
}
