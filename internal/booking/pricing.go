package booking

import (
	"context"
	"time"

	"github.com/tupichanga/courtbook/internal/domain"
)

// ResolvePrice determines the authoritative price for a court at a start
// time: the schedule window covering the instant wins, otherwise the
// court's base hourly price.
func (s *Service) ResolvePrice(ctx context.Context, courtID int64, start time.Time) (float64, error) {
	court, err := s.store.GetCourt(ctx, courtID)
	if err != nil {
		return 0, err
	}
	return s.resolveForCourt(ctx, court, start)
}

func (s *Service) resolveForCourt(ctx context.Context, court domain.Court, start time.Time) (float64, error) {
	start = start.UTC()
	dayOfWeek := int(start.Weekday())
	timeOfDay := start.Format("15:04")

	windows, err := s.store.WindowsForDay(ctx, court.ID, dayOfWeek)
	if err != nil {
		return 0, err
	}

	// Windows arrive ordered by start time and the schedule editor rejects
	// overlap at write time, so the first covering window is the only one.
	// The interval is half-open: a window ending exactly at the slot start
	// does not match, one starting at it does.
	for _, w := range windows {
		if w.StartTime <= timeOfDay && timeOfDay < w.EndTime {
			return w.Price, nil
		}
	}

	return court.PricePerHour, nil
}
