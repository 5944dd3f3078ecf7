package booking

import (
	"context"
	"testing"
	"time"

	"github.com/tupichanga/courtbook/internal/clock"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/store"
	"github.com/tupichanga/courtbook/internal/testutil"
)

// testNow is a Monday morning; most tests book the following Tuesday.
var testNow = time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)

// tuesday returns the Tuesday after testNow at the given wall-clock hour.
func tuesday(hour int) time.Time {
	return time.Date(2025, 6, 17, hour, 0, 0, 0, time.UTC)
}

const tuesdayDOW = 2

type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *store.Store
	svc     *Service
	client  domain.Actor
	owner   domain.Actor
	venueID int64
	courtID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.New(testutil.NewTestDB(t))

	ownerID, err := st.CreateUser(ctx, domain.User{
		Email: "owner@example.com", Name: "Owner", PasswordHash: "x", Role: domain.RoleOwner,
	})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	clientID, err := st.CreateUser(ctx, domain.User{
		Email: "client@example.com", Name: "Client", PasswordHash: "x", Role: domain.RoleClient,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	venueID, err := st.CreateVenue(ctx, domain.Venue{
		OwnerID: ownerID, Name: "La Bombonera", Address: "Av. Arequipa 123", City: "Lima",
	})
	if err != nil {
		t.Fatalf("create venue: %v", err)
	}
	courtID, err := st.CreateCourt(ctx, domain.Court{
		VenueID: venueID, Name: "Cancha 1", Sport: "futsal", PricePerHour: 100,
	})
	if err != nil {
		t.Fatalf("create court: %v", err)
	}

	return &fixture{
		t:       t,
		ctx:     ctx,
		store:   st,
		svc:     NewService(st, clock.NewFixed(testNow)),
		client:  domain.Actor{ID: clientID, Role: domain.RoleClient},
		owner:   domain.Actor{ID: ownerID, Role: domain.RoleOwner},
		venueID: venueID,
		courtID: courtID,
	}
}

func (f *fixture) setWindows(day int, windows ...domain.ScheduleWindow) {
	f.t.Helper()
	if err := f.store.ReplaceDayWindows(f.ctx, f.courtID, day, windows); err != nil {
		f.t.Fatalf("set windows: %v", err)
	}
}

func window(start, end string, price float64) domain.ScheduleWindow {
	return domain.ScheduleWindow{StartTime: start, EndTime: end, Price: price}
}

func (f *fixture) insertBooking(start time.Time, status domain.BookingStatus) int64 {
	f.t.Helper()
	id, err := f.store.CreateBooking(f.ctx, domain.Booking{
		UserID:     f.client.ID,
		CourtID:    f.courtID,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		TotalPrice: 80,
		Status:     status,
	})
	if err != nil {
		f.t.Fatalf("insert booking: %v", err)
	}
	return id
}

func (f *fixture) bookingStatus(id int64) domain.BookingStatus {
	f.t.Helper()
	b, err := f.store.GetBooking(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get booking: %v", err)
	}
	return b.Status
}
