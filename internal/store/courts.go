package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tupichanga/courtbook/internal/domain"
)

const courtColumns = `id, venue_id, name, sport, surface, price_per_hour, created_at`

func scanCourt(row interface{ Scan(...any) error }) (domain.Court, error) {
	var c domain.Court
	var createdAt int64
	err := row.Scan(&c.ID, &c.VenueID, &c.Name, &c.Sport, &c.Surface, &c.PricePerHour, &createdAt)
	if err != nil {
		return domain.Court{}, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return c, nil
}

func (s *Store) CreateCourt(ctx context.Context, c domain.Court) (int64, error) {
	const stmt = `
INSERT INTO courts (venue_id, name, sport, surface, price_per_hour)
VALUES (?, ?, ?, ?, ?)`

	res, err := s.conn(ctx).ExecContext(ctx, stmt, c.VenueID, c.Name, c.Sport, c.Surface, c.PricePerHour)
	if err != nil {
		return 0, fmt.Errorf("create court: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateCourt(ctx context.Context, c domain.Court) error {
	const stmt = `
UPDATE courts SET name = ?, sport = ?, surface = ?, price_per_hour = ? WHERE id = ?`

	res, err := s.conn(ctx).ExecContext(ctx, stmt, c.Name, c.Sport, c.Surface, c.PricePerHour, c.ID)
	if err != nil {
		return fmt.Errorf("update court: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update court: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCourt(ctx context.Context, id int64) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM courts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete court: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete court: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetCourt(ctx context.Context, id int64) (domain.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE id = ?`
	c, err := scanCourt(s.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Court{}, domain.ErrNotFound
		}
		return domain.Court{}, fmt.Errorf("get court: %w", err)
	}
	return c, nil
}

func (s *Store) ListCourtsByVenue(ctx context.Context, venueID int64) ([]domain.Court, error) {
	query := `SELECT ` + courtColumns + ` FROM courts WHERE venue_id = ? ORDER BY id`

	rows, err := s.conn(ctx).QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("list courts: %w", err)
	}
	defer rows.Close()

	var courts []domain.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, fmt.Errorf("list courts: %w", err)
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

// CourtOwner resolves the owner and venue of a court in one query. Every
// mutating operation on courts, schedules and bookings is gated on it.
func (s *Store) CourtOwner(ctx context.Context, courtID int64) (ownerID, venueID int64, err error) {
	const query = `
SELECT v.owner_id, v.id
FROM courts c
JOIN venues v ON v.id = c.venue_id
WHERE c.id = ?`

	err = s.conn(ctx).QueryRowContext(ctx, query, courtID).Scan(&ownerID, &venueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, domain.ErrNotFound
		}
		return 0, 0, fmt.Errorf("court owner: %w", err)
	}
	return ownerID, venueID, nil
}

// CountActiveBookings counts slot-occupying bookings for a court that have
// not ended yet. Used to block court deletion.
func (s *Store) CountActiveBookings(ctx context.Context, courtID int64, now time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM bookings
WHERE court_id = ? AND status IN ('PENDING', 'CONFIRMED', 'COMPLETED') AND end_time > ?`

	var count int
	if err := s.conn(ctx).QueryRowContext(ctx, query, courtID, now.UTC().Unix()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}
