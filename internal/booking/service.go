// Package booking is the slot availability and booking-creation engine.
// It owns conflict detection, the status workflow, rescheduling and the
// lazy expiration sweep. Callers hand it validated, typed inputs; it never
// sees raw request payloads.
package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/clock"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/store"
)

// ViewCache invalidates cached views after booking mutations. The booking
// engine only signals; rendering and caching live outside the core.
type ViewCache interface {
	InvalidateVenue(ctx context.Context, venueID int64) error
	InvalidateUserBookings(ctx context.Context, userID int64) error
}

type Service struct {
	store *store.Store
	clock clock.Clock
	cache ViewCache
}

type Option func(*Service)

// WithViewCache attaches a cache invalidator to booking mutations.
func WithViewCache(c ViewCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func NewService(st *store.Store, clk clock.Clock, opts ...Option) *Service {
	svc := &Service{store: st, clock: clk}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateInput struct {
	CourtID int64
	Start   time.Time
	// ProposedPrice is what the client saw when picking the slot. It is
	// an analytics hint only; the stored price always comes from the
	// resolver.
	ProposedPrice float64
	Actor         domain.Actor
}

// Create reserves a one-hour slot as a PENDING booking. Owners cannot book;
// past starts are rejected; the conflict check and insert share one
// transaction, with the slot unique index as the backstop under
// concurrency.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	if in.Actor.Role == domain.RoleOwner {
		return 0, domain.ErrRoleNotAllowed
	}

	now := s.clock.Now()
	start := in.Start.UTC().Truncate(time.Minute)
	if start.Before(now) {
		return 0, domain.ErrPastDate
	}
	end := start.Add(time.Hour)

	court, err := s.store.GetCourt(ctx, in.CourtID)
	if err != nil {
		return 0, err
	}

	price, err := s.resolveForCourt(ctx, court, start)
	if err != nil {
		return 0, err
	}
	if in.ProposedPrice != 0 && in.ProposedPrice != price {
		log.Ctx(ctx).Debug().
			Int64("court_id", court.ID).
			Float64("proposed", in.ProposedPrice).
			Float64("resolved", price).
			Msg("Proposed price differs from resolved price")
	}

	var id int64
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		taken, err := s.store.HasBlockingAtStart(ctx, court.ID, start)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrSlotUnavailable
		}

		id, err = s.store.CreateBooking(ctx, domain.Booking{
			UserID:     in.Actor.ID,
			CourtID:    court.ID,
			StartTime:  start,
			EndTime:    end,
			TotalPrice: price,
			Status:     domain.StatusPending,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", id).
		Int64("court_id", court.ID).
		Time("start", start).
		Float64("total_price", price).
		Msg("Booking created")

	s.invalidateViews(ctx, court.VenueID, in.Actor.ID)
	return id, nil
}

// Reschedule moves a booking to a new start. Permitted for the booking's
// user or the venue owner; not for REJECTED/COMPLETED bookings. The
// conflict check here is range-based and excludes the booking itself.
// The total price is never recomputed.
func (s *Service) Reschedule(ctx context.Context, bookingID int64, newStart time.Time, actor domain.Actor) error {
	detail, err := s.store.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return err
	}

	if actor.ID != detail.UserID && actor.ID != detail.VenueOwnerID {
		return domain.ErrForbidden
	}
	if detail.Status == domain.StatusRejected || detail.Status == domain.StatusCompleted {
		return domain.ErrInvalidState
	}

	start := newStart.UTC().Truncate(time.Minute)
	end := start.Add(time.Hour)

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		conflict, err := s.store.HasRangeConflict(ctx, detail.CourtID, start, end, bookingID)
		if err != nil {
			return err
		}
		if conflict {
			return domain.ErrSlotUnavailable
		}
		return s.store.UpdateBookingTimes(ctx, bookingID, start, end)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", bookingID).
		Time("new_start", start).
		Msg("Booking rescheduled")

	s.invalidateViews(ctx, detail.VenueID, detail.UserID)
	return nil
}

// UpdateStatus sets a booking's status. Only the owner of the venue that
// holds the booking's court may do this. Any status may move to any other;
// the workflow is deliberately unrestricted.
func (s *Service) UpdateStatus(ctx context.Context, bookingID int64, status domain.BookingStatus, actor domain.Actor) error {
	if actor.Role != domain.RoleOwner {
		return domain.ErrForbidden
	}

	detail, err := s.store.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return err
	}
	if detail.VenueOwnerID != actor.ID {
		return domain.ErrForbidden
	}
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, status); err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Int64("booking_id", bookingID).
		Str("status", string(status)).
		Msg("Booking status updated")

	s.invalidateViews(ctx, detail.VenueID, detail.UserID)
	return nil
}

// ExpireOverdue normalizes PENDING/CONFIRMED bookings whose end time has
// passed to COMPLETED. It runs before availability reads and from the
// periodic sweep; calling it redundantly is safe. Expiry never frees a
// slot: COMPLETED still blocks.
func (s *Service) ExpireOverdue(ctx context.Context) error {
	n, err := s.store.ExpireOverdue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Ctx(ctx).Debug().Int64("expired", n).Msg("Overdue bookings completed")
	}
	return nil
}

const upcomingWindow = 12 * time.Hour

// Upcoming returns a user's PENDING/CONFIRMED bookings starting within the
// next 12 hours, soonest first.
func (s *Service) Upcoming(ctx context.Context, userID int64) ([]store.BookingRow, error) {
	now := s.clock.Now()
	return s.store.UpcomingForUser(ctx, userID, now, now.Add(upcomingWindow))
}

// ForUser returns all bookings of a user, most recent start first.
func (s *Service) ForUser(ctx context.Context, userID int64) ([]store.BookingRow, error) {
	return s.store.ListForUser(ctx, userID)
}

// Page is one page of an owner's booking list.
type Page struct {
	Bookings   []store.BookingRow
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
}

const defaultPageSize = 10

// ForOwner pages through bookings across the actor's venues, optionally
// narrowed to one court (courtID zero means all).
func (s *Service) ForOwner(ctx context.Context, actor domain.Actor, page, pageSize int, courtID int64) (Page, error) {
	if actor.Role != domain.RoleOwner {
		return Page{}, domain.ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	total, err := s.store.CountForOwner(ctx, actor.ID, courtID)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.store.ListForOwner(ctx, actor.ID, courtID, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return Page{
		Bookings:   rows,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) invalidateViews(ctx context.Context, venueID, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVenue(ctx, venueID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("venue_id", venueID).Msg("Venue view invalidation failed")
	}
	if err := s.cache.InvalidateUserBookings(ctx, userID); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("User bookings view invalidation failed")
	}
}
