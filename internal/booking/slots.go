package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/domain"
)

const slotMinutes = 60

// Slots expands a court's schedule windows for one calendar date into
// discrete hourly slots with price and availability. The date is a civil
// date; day-of-week is fixed by anchoring at noon UTC so midnight boundary
// shifts cannot move the day. A day with no windows yields no slots.
func (s *Service) Slots(ctx context.Context, courtID int64, date time.Time) ([]domain.Slot, error) {
	// Normalize status of stale bookings first so reporting sees them as
	// COMPLETED. This never frees a slot.
	if err := s.ExpireOverdue(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Expiration sweep failed before availability read")
	}

	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)
	dayOfWeek := int(noon.Weekday())

	windows, err := s.store.WindowsForDay(ctx, courtID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []domain.Slot{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	bookings, err := s.store.BlockingBookingsBetween(ctx, courtID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	// Occupancy is matched by wall-clock start, consistent with the fixed
	// hourly grid.
	booked := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		booked[b.StartTime.Format("15:04")] = true
	}

	slots := []domain.Slot{}
	for _, w := range windows {
		cur, err := parseHHMM(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w.ID, err)
		}
		end, err := parseHHMM(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w.ID, err)
		}

		// Walk in fixed increments; a remainder shorter than a full slot
		// is dropped, never rounded or split.
		for cur+slotMinutes <= end {
			start := formatHHMM(cur)
			slots = append(slots, domain.Slot{
				Time:   start,
				Price:  w.Price,
				Booked: booked[start],
			})
			cur += slotMinutes
		}
	}

	return slots, nil
}

func parseHHMM(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
