package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/testutil"
)

func newStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	return New(testutil.NewTestDB(t)), context.Background()
}

func seedCourt(t *testing.T, s *Store, ctx context.Context) (userID, courtID int64) {
	t.Helper()
	ownerID, err := s.CreateUser(ctx, domain.User{
		Email: "owner@example.com", Name: "Owner", PasswordHash: "x", Role: domain.RoleOwner,
	})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	userID, err = s.CreateUser(ctx, domain.User{
		Email: "client@example.com", Name: "Client", PasswordHash: "x", Role: domain.RoleClient,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	venueID, err := s.CreateVenue(ctx, domain.Venue{
		OwnerID: ownerID, Name: "Estadio Chico", Address: "Calle Lima 1", City: "Lima",
	})
	if err != nil {
		t.Fatalf("create venue: %v", err)
	}
	courtID, err = s.CreateCourt(ctx, domain.Court{
		VenueID: venueID, Name: "Cancha 1", Sport: "futsal", PricePerHour: 50,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}
	return userID, courtID
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, ctx := newStore(t)

	u := domain.User{Email: "dup@example.com", Name: "A", PasswordHash: "x", Role: domain.RoleClient}
	if _, err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, u); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s, ctx := newStore(t)

	if _, err := s.GetUserByID(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateUserProfile_KeepsPasswordWhenHashEmpty(t *testing.T) {
	s, ctx := newStore(t)

	id, err := s.CreateUser(ctx, domain.User{
		Email: "p@example.com", Name: "P", PasswordHash: "original", Role: domain.RoleClient,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.UpdateUserProfile(ctx, id, "New Name", "+51987654321", "", ""); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	u, _ := s.GetUserByID(ctx, id)
	if u.PasswordHash != "original" {
		t.Errorf("password hash changed: %q", u.PasswordHash)
	}
	if u.Name != "New Name" || u.Phone != "+51987654321" {
		t.Errorf("profile fields not updated: %+v", u)
	}

	if err := s.UpdateUserProfile(ctx, id, "New Name", "", "", "rotated"); err != nil {
		t.Fatalf("UpdateUserProfile with hash: %v", err)
	}
	u, _ = s.GetUserByID(ctx, id)
	if u.PasswordHash != "rotated" {
		t.Errorf("password hash not replaced: %q", u.PasswordHash)
	}
}

func TestSlotUniqueIndex(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	start := time.Date(2025, 6, 17, 15, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		UserID: userID, CourtID: courtID,
		StartTime: start, EndTime: start.Add(time.Hour),
		Status: domain.StatusPending,
	}

	if _, err := s.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("first CreateBooking: %v", err)
	}
	if _, err := s.CreateBooking(ctx, booking); !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable from unique index", err)
	}

	// REJECTED rows are outside the partial index.
	rejected := booking
	rejected.Status = domain.StatusRejected
	if _, err := s.CreateBooking(ctx, rejected); err != nil {
		t.Fatalf("rejected row should not trip the index: %v", err)
	}
}

func TestUpdateBookingStatus_IndexCollision(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	start := time.Date(2025, 6, 17, 15, 0, 0, 0, time.UTC)
	base := domain.Booking{
		UserID: userID, CourtID: courtID,
		StartTime: start, EndTime: start.Add(time.Hour),
	}

	base.Status = domain.StatusRejected
	rejectedID, err := s.CreateBooking(ctx, base)
	if err != nil {
		t.Fatalf("create rejected: %v", err)
	}

	base.Status = domain.StatusPending
	if _, err := s.CreateBooking(ctx, base); err != nil {
		t.Fatalf("create pending: %v", err)
	}

	// Re-activating the rejected booking would double-occupy the slot.
	err = s.UpdateBookingStatus(ctx, rejectedID, domain.StatusConfirmed)
	if !errors.Is(err, domain.ErrSlotUnavailable) {
		t.Fatalf("got %v, want ErrSlotUnavailable", err)
	}
}

func TestHasRangeConflict(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	start := time.Date(2025, 6, 17, 15, 0, 0, 0, time.UTC)
	id, err := s.CreateBooking(ctx, domain.Booking{
		UserID: userID, CourtID: courtID,
		StartTime: start, EndTime: start.Add(time.Hour),
		Status: domain.StatusRejected,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	// Status is irrelevant to the range check.
	conflict, err := s.HasRangeConflict(ctx, courtID, start, start.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("HasRangeConflict: %v", err)
	}
	if !conflict {
		t.Error("expected conflict with existing row")
	}

	// The row itself is excluded.
	conflict, err = s.HasRangeConflict(ctx, courtID, start, start.Add(time.Hour), id)
	if err != nil {
		t.Fatalf("HasRangeConflict excluding self: %v", err)
	}
	if conflict {
		t.Error("row should not conflict with itself")
	}

	// Half-open range: a booking starting exactly at the end does not clash.
	conflict, err = s.HasRangeConflict(ctx, courtID, start.Add(-time.Hour), start, 0)
	if err != nil {
		t.Fatalf("HasRangeConflict boundary: %v", err)
	}
	if conflict {
		t.Error("end boundary should be exclusive")
	}
}

func TestExpireOverdue(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	now := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	mk := func(start time.Time, status domain.BookingStatus) int64 {
		id, err := s.CreateBooking(ctx, domain.Booking{
			UserID: userID, CourtID: courtID,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status: status,
		})
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
		return id
	}

	stalePending := mk(now.Add(-48*time.Hour), domain.StatusPending)
	staleRejected := mk(now.Add(-72*time.Hour), domain.StatusRejected)
	future := mk(now.Add(24*time.Hour), domain.StatusConfirmed)

	n, err := s.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d rows, want 1", n)
	}

	check := func(id int64, want domain.BookingStatus) {
		t.Helper()
		b, err := s.GetBooking(ctx, id)
		if err != nil {
			t.Fatalf("GetBooking: %v", err)
		}
		if b.Status != want {
			t.Errorf("booking %d status = %s, want %s", id, b.Status, want)
		}
	}
	check(stalePending, domain.StatusCompleted)
	check(staleRejected, domain.StatusRejected)
	check(future, domain.StatusConfirmed)

	// Second run touches nothing.
	n, err = s.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("second ExpireOverdue: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run expired %d rows, want 0", n)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	start := time.Date(2025, 6, 17, 15, 0, 0, 0, time.UTC)
	sentinel := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.CreateBooking(ctx, domain.Booking{
			UserID: userID, CourtID: courtID,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status: domain.StatusPending,
		})
		if err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want sentinel", err)
	}

	taken, err := s.HasBlockingAtStart(ctx, courtID, start)
	if err != nil {
		t.Fatalf("HasBlockingAtStart: %v", err)
	}
	if taken {
		t.Error("insert should have been rolled back")
	}
}

func TestCountActiveBookings(t *testing.T) {
	s, ctx := newStore(t)
	userID, courtID := seedCourt(t, s, ctx)

	now := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	mk := func(start time.Time, status domain.BookingStatus) {
		if _, err := s.CreateBooking(ctx, domain.Booking{
			UserID: userID, CourtID: courtID,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status: status,
		}); err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
	}

	mk(now.Add(24*time.Hour), domain.StatusPending)
	mk(now.Add(48*time.Hour), domain.StatusRejected)
	mk(now.Add(-48*time.Hour), domain.StatusCompleted)

	count, err := s.CountActiveBookings(ctx, courtID, now)
	if err != nil {
		t.Fatalf("CountActiveBookings: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d active bookings, want 1", count)
	}
}
