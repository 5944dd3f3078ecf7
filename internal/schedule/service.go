// Package schedule manages the weekly recurring price windows of a court.
// A day's windows are always replaced wholesale, never merged.
package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tupichanga/courtbook/internal/domain"
	"github.com/tupichanga/courtbook/internal/store"
)

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// WindowInput is one validated window of a day's schedule.
type WindowInput struct {
	StartTime string
	EndTime   string
	Price     float64
}

// ReplaceDay atomically replaces all windows for (court, dayOfWeek) with
// the submitted set. Only the venue owner may edit. Windows must be valid
// HH:MM intervals and must not overlap each other; overlap would make slot
// pricing ambiguous, so it is rejected here rather than resolved later.
func (s *Service) ReplaceDay(ctx context.Context, courtID int64, dayOfWeek int, windows []WindowInput, actor domain.Actor) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return domain.ErrInvalidWindow
	}

	ownerID, _, err := s.store.CourtOwner(ctx, courtID)
	if err != nil {
		return err
	}
	if ownerID != actor.ID {
		return domain.ErrForbidden
	}

	validated := make([]domain.ScheduleWindow, 0, len(windows))
	for _, w := range windows {
		if !validHHMM(w.StartTime) || !validHHMM(w.EndTime) {
			return domain.ErrInvalidWindow
		}
		if w.StartTime >= w.EndTime || w.Price < 0 {
			return domain.ErrInvalidWindow
		}
		validated = append(validated, domain.ScheduleWindow{
			CourtID:   courtID,
			DayOfWeek: dayOfWeek,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			Price:     w.Price,
		})
	}

	sort.Slice(validated, func(i, j int) bool {
		return validated[i].StartTime < validated[j].StartTime
	})
	for i := 1; i < len(validated); i++ {
		if validated[i-1].EndTime > validated[i].StartTime {
			return domain.ErrWindowOverlap
		}
	}

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		return s.store.ReplaceDayWindows(ctx, courtID, dayOfWeek, validated)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Int64("court_id", courtID).
		Int("day_of_week", dayOfWeek).
		Int("windows", len(validated)).
		Msg("Day schedule replaced")
	return nil
}

// ForDay returns a court's windows for one day, ordered by start time.
func (s *Service) ForDay(ctx context.Context, courtID int64, dayOfWeek int) ([]domain.ScheduleWindow, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, domain.ErrInvalidWindow
	}
	return s.store.WindowsForDay(ctx, courtID, dayOfWeek)
}

// ForCourt returns all windows of a court for the schedule editor.
func (s *Service) ForCourt(ctx context.Context, courtID int64) ([]domain.ScheduleWindow, error) {
	return s.store.WindowsForCourt(ctx, courtID)
}

func validHHMM(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil && len(value) == 5
}
