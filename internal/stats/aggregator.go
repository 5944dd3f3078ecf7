// Package stats rolls the booking ledger up into per-court and per-venue
// revenue reports for owner dashboards.
package stats

import (
	"context"
	"time"

	"github.com/tupichanga/courtbook/internal/clock"
	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/store"
)

type Service struct {
	store *store.Store
	clock clock.Clock
}

func NewService(st *store.Store, clk clock.Clock) *Service {
	return &Service{store: st, clock: clk}
}

// MonthCount is one bucket of a dense monthly histogram.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type CourtStats struct {
	CourtID   int64        `json:"courtId"`
	Name      string       `json:"name"`
	Bookings  int          `json:"totalBookings"`
	Revenue   float64      `json:"revenue"`
	Histogram []MonthCount `json:"histogram"`
}

// RecentBooking is one row of the dashboard's latest-bookings list.
type RecentBooking struct {
	ID         int64     `json:"id"`
	UserName   string    `json:"userName"`
	CourtName  string    `json:"courtName"`
	StartTime  time.Time `json:"startTime"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
}

type VenueStats struct {
	Revenue       float64         `json:"revenue"`
	TotalBookings int             `json:"totalBookings"`
	PopularCourt  string          `json:"popularCourtName"`
	Courts        []CourtStats    `json:"courts"`
	Histogram     []MonthCount    `json:"histogram"`
	Recent        []RecentBooking `json:"recentBookings"`
}

const (
	histogramMonths = 12
	recentLimit     = 5
)

// VenueStats aggregates CONFIRMED/COMPLETED bookings of a venue over the
// trailing 12 calendar months. Revenue, totals, per-court breakdowns and
// the histogram all derive from one canonical fetch so the headline
// numbers cannot diverge. Only the venue owner may read it.
func (s *Service) VenueStats(ctx context.Context, venueID int64, actor domain.Actor) (VenueStats, error) {
	venue, err := s.store.GetVenue(ctx, venueID)
	if err != nil {
		return VenueStats{}, err
	}
	if venue.OwnerID != actor.ID {
		return VenueStats{}, domain.ErrForbidden
	}

	now := s.clock.Now()
	months := trailingMonths(now)
	since := months[0]

	courts, err := s.store.ListCourtsByVenue(ctx, venueID)
	if err != nil {
		return VenueStats{}, err
	}

	bookings, err := s.store.VenueBookingsSince(ctx, venueID, since)
	if err != nil {
		return VenueStats{}, err
	}

	var revenue float64
	globalByMonth := make(map[string]int)
	countByCourt := make(map[int64]int)
	revenueByCourt := make(map[int64]float64)
	courtByMonth := make(map[int64]map[string]int)

	for _, b := range bookings {
		key := monthKey(b.StartTime)
		revenue += b.TotalPrice
		globalByMonth[key]++
		countByCourt[b.CourtID]++
		revenueByCourt[b.CourtID] += b.TotalPrice
		if courtByMonth[b.CourtID] == nil {
			courtByMonth[b.CourtID] = make(map[string]int)
		}
		courtByMonth[b.CourtID][key]++
	}

	result := VenueStats{
		Revenue:       revenue,
		TotalBookings: len(bookings),
		Histogram:     denseHistogram(months, globalByMonth),
		Courts:        make([]CourtStats, 0, len(courts)),
	}

	// Popular court: highest qualifying-booking count, ties broken by
	// lowest court ID. Courts arrive ordered by ID, so the first court
	// holding the running maximum wins.
	best := -1
	for _, c := range courts {
		count := countByCourt[c.ID]
		result.Courts = append(result.Courts, CourtStats{
			CourtID:   c.ID,
			Name:      c.Name,
			Bookings:  count,
			Revenue:   revenueByCourt[c.ID],
			Histogram: denseHistogram(months, courtByMonth[c.ID]),
		})
		if count > best {
			best = count
			result.PopularCourt = c.Name
		}
	}

	recent, err := s.store.RecentVenueBookings(ctx, venueID, recentLimit)
	if err != nil {
		return VenueStats{}, err
	}
	result.Recent = make([]RecentBooking, 0, len(recent))
	for _, row := range recent {
		result.Recent = append(result.Recent, RecentBooking{
			ID:         row.ID,
			UserName:   row.UserName,
			CourtName:  row.CourtName,
			StartTime:  row.StartTime,
			TotalPrice: row.TotalPrice,
			Status:     string(row.Status),
		})
	}

	return result, nil
}

// trailingMonths returns the first instants of the last 12 calendar
// months, oldest first, ending with the current month.
func trailingMonths(now time.Time) []time.Time {
	months := make([]time.Time, 0, histogramMonths)
	for i := histogramMonths - 1; i >= 0; i-- {
		months = append(months, time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC))
	}
	return months
}

func denseHistogram(months []time.Time, counts map[string]int) []MonthCount {
	histogram := make([]MonthCount, 0, len(months))
	for _, m := range months {
		key := monthKey(m)
		histogram = append(histogram, MonthCount{Month: key, Count: counts[key]})
	}
	return histogram
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
