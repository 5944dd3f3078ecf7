package store

import (
	"context"
	"fmt"

	"github.com/tupichanga/courtbook/internal/domain"
)

// ReplaceDayWindows deletes all windows for (court, day) and inserts the
// new set. Callers wrap it in WithTx so the replace is all-or-nothing.
func (s *Store) ReplaceDayWindows(ctx context.Context, courtID int64, dayOfWeek int, windows []domain.ScheduleWindow) error {
	conn := s.conn(ctx)

	_, err := conn.ExecContext(ctx,
		`DELETE FROM schedule_windows WHERE court_id = ? AND day_of_week = ?`,
		courtID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("delete day windows: %w", err)
	}

	const stmt = `
INSERT INTO schedule_windows (court_id, day_of_week, start_time, end_time, price)
VALUES (?, ?, ?, ?, ?)`

	for _, w := range windows {
		if _, err := conn.ExecContext(ctx, stmt, courtID, dayOfWeek, w.StartTime, w.EndTime, w.Price); err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
	}
	return nil
}

// WindowsForDay returns a court's windows for one day of week, ordered by
// start time ascending. Slot generation and pricing both depend on the
// ordering.
func (s *Store) WindowsForDay(ctx context.Context, courtID int64, dayOfWeek int) ([]domain.ScheduleWindow, error) {
	const query = `
SELECT id, court_id, day_of_week, start_time, end_time, price
FROM schedule_windows
WHERE court_id = ? AND day_of_week = ?
ORDER BY start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, courtID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("windows for day: %w", err)
	}
	defer rows.Close()

	var windows []domain.ScheduleWindow
	for rows.Next() {
		var w domain.ScheduleWindow
		if err := rows.Scan(&w.ID, &w.CourtID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.Price); err != nil {
			return nil, fmt.Errorf("windows for day: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

// WindowsForCourt returns all windows of a court ordered by day then start
// time, for the schedule editor.
func (s *Store) WindowsForCourt(ctx context.Context, courtID int64) ([]domain.ScheduleWindow, error) {
	const query = `
SELECT id, court_id, day_of_week, start_time, end_time, price
FROM schedule_windows
WHERE court_id = ?
ORDER BY day_of_week, start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, courtID)
	if err != nil {
		return nil, fmt.Errorf("windows for court: %w", err)
	}
	defer rows.Close()

	var windows []domain.ScheduleWindow
	for rows.Next() {
		var w domain.ScheduleWindow
		if err := rows.Scan(&w.ID, &w.CourtID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.Price); err != nil {
			return nil, fmt.Errorf("windows for court: %w", err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
