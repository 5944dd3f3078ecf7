package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tupichanga/courtbook/internal/db"
	"github.com/tupichanga/courtbook/internal/domain"
)

const bookingColumns = `id, user_id, court_id, start_time, end_time, total_price, status, created_at`

// BookingDetail is a booking joined with the court's venue and its owner,
// for permission checks.
type BookingDetail struct {
	domain.Booking
	VenueID      int64
	VenueOwnerID int64
}

// BookingRow is a booking joined with display names for listings.
type BookingRow struct {
	domain.Booking
	UserName  string
	UserEmail string
	CourtName string
	VenueName string
}

func scanBooking(row interface{ Scan(...any) error }) (domain.Booking, error) {
	var b domain.Booking
	var start, end, createdAt int64
	err := row.Scan(&b.ID, &b.UserID, &b.CourtID, &start, &end, &b.TotalPrice, &b.Status, &createdAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.StartTime = time.Unix(start, 0).UTC()
	b.EndTime = time.Unix(end, 0).UTC()
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	return b, nil
}

// CreateBooking inserts a booking. The partial unique index on
// (court_id, start_time) for slot-occupying statuses is the concurrency
// backstop; a violation maps to ErrSlotUnavailable.
func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	const stmt = `
INSERT INTO bookings (user_id, court_id, start_time, end_time, total_price, status)
VALUES (?, ?, ?, ?, ?, ?)`

	res, err := s.conn(ctx).ExecContext(ctx, stmt,
		b.UserID, b.CourtID, b.StartTime.UTC().Unix(), b.EndTime.UTC().Unix(), b.TotalPrice, b.Status)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, domain.ErrSlotUnavailable
		}
		return 0, fmt.Errorf("create booking: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(s.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, domain.ErrNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// GetBookingDetail loads a booking together with its venue and the venue's
// owner.
func (s *Store) GetBookingDetail(ctx context.Context, id int64) (BookingDetail, error) {
	const query = `
SELECT b.id, b.user_id, b.court_id, b.start_time, b.end_time, b.total_price, b.status, b.created_at,
       v.id, v.owner_id
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN venues v ON v.id = c.venue_id
WHERE b.id = ?`

	var d BookingDetail
	var start, end, createdAt int64
	err := s.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.CourtID, &start, &end, &d.TotalPrice, &d.Status, &createdAt,
		&d.VenueID, &d.VenueOwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BookingDetail{}, domain.ErrNotFound
		}
		return BookingDetail{}, fmt.Errorf("get booking detail: %w", err)
	}
	d.StartTime = time.Unix(start, 0).UTC()
	d.EndTime = time.Unix(end, 0).UTC()
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	return d, nil
}

// HasBlockingAtStart reports whether a slot-occupying booking exists for
// the court at exactly this start time.
func (s *Store) HasBlockingAtStart(ctx context.Context, courtID int64, start time.Time) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE court_id = ? AND start_time = ? AND status IN ('PENDING', 'CONFIRMED', 'COMPLETED')
)`

	var exists bool
	if err := s.conn(ctx).QueryRowContext(ctx, query, courtID, start.UTC().Unix()).Scan(&exists); err != nil {
		return false, fmt.Errorf("blocking at start: %w", err)
	}
	return exists, nil
}

// HasRangeConflict reports whether any booking for the court starts inside
// [start, end), excluding excludeID. Status is deliberately not filtered
// here; reschedule treats every existing row as occupying.
func (s *Store) HasRangeConflict(ctx context.Context, courtID int64, start, end time.Time, excludeID int64) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE court_id = ? AND id != ? AND start_time >= ? AND start_time < ?
)`

	var exists bool
	err := s.conn(ctx).QueryRowContext(ctx, query,
		courtID, excludeID, start.UTC().Unix(), end.UTC().Unix()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("range conflict: %w", err)
	}
	return exists, nil
}

func (s *Store) UpdateBookingTimes(ctx context.Context, id int64, start, end time.Time) error {
	const stmt = `UPDATE bookings SET start_time = ?, end_time = ? WHERE id = ?`

	_, err := s.conn(ctx).ExecContext(ctx, stmt, start.UTC().Unix(), end.UTC().Unix(), id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("update booking times: %w", err)
	}
	return nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	const stmt = `UPDATE bookings SET status = ? WHERE id = ?`

	_, err := s.conn(ctx).ExecContext(ctx, stmt, status, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Flipping REJECTED back to a blocking status can collide
			// with a booking that has since taken the slot.
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// ExpireOverdue marks PENDING/CONFIRMED bookings whose end time has passed
// as COMPLETED. Idempotent; returns the number of rows touched.
func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const stmt = `
UPDATE bookings SET status = 'COMPLETED'
WHERE status IN ('PENDING', 'CONFIRMED') AND end_time < ?`

	res, err := s.conn(ctx).ExecContext(ctx, stmt, now.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("expire overdue: %w", err)
	}
	return res.RowsAffected()
}

// BlockingBookingsBetween returns slot-occupying bookings for a court with
// start time in [from, to].
func (s *Store) BlockingBookingsBetween(ctx context.Context, courtID int64, from, to time.Time) ([]domain.Booking, error) {
	query := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE court_id = ? AND start_time >= ? AND start_time <= ?
  AND status IN ('PENDING', 'CONFIRMED', 'COMPLETED')
ORDER BY start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, courtID, from.UTC().Unix(), to.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("blocking bookings between: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("blocking bookings between: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// StartsBetween returns the start times of all bookings for a court in
// [from, to], regardless of status.
func (s *Store) StartsBetween(ctx context.Context, courtID int64, from, to time.Time) ([]time.Time, error) {
	const query = `
SELECT start_time FROM bookings
WHERE court_id = ? AND start_time >= ? AND start_time <= ?
ORDER BY start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, courtID, from.UTC().Unix(), to.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("starts between: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var start int64
		if err := rows.Scan(&start); err != nil {
			return nil, fmt.Errorf("starts between: %w", err)
		}
		starts = append(starts, time.Unix(start, 0).UTC())
	}
	return starts, rows.Err()
}

const bookingRowQuery = `
SELECT b.id, b.user_id, b.court_id, b.start_time, b.end_time, b.total_price, b.status, b.created_at,
       u.name, u.email, c.name, v.name
FROM bookings b
JOIN users u ON u.id = b.user_id
JOIN courts c ON c.id = b.court_id
JOIN venues v ON v.id = c.venue_id`

func collectBookingRows(rows *sql.Rows) ([]BookingRow, error) {
	var result []BookingRow
	for rows.Next() {
		var r BookingRow
		var start, end, createdAt int64
		err := rows.Scan(&r.ID, &r.UserID, &r.CourtID, &start, &end, &r.TotalPrice, &r.Status, &createdAt,
			&r.UserName, &r.UserEmail, &r.CourtName, &r.VenueName)
		if err != nil {
			return nil, err
		}
		r.StartTime = time.Unix(start, 0).UTC()
		r.EndTime = time.Unix(end, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// UpcomingForUser returns PENDING/CONFIRMED bookings of a user starting in
// [from, to], soonest first. This is the notification surface query.
func (s *Store) UpcomingForUser(ctx context.Context, userID int64, from, to time.Time) ([]BookingRow, error) {
	query := bookingRowQuery + `
WHERE b.user_id = ? AND b.status IN ('PENDING', 'CONFIRMED')
  AND b.start_time >= ? AND b.start_time <= ?
ORDER BY b.start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, userID, from.UTC().Unix(), to.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("upcoming for user: %w", err)
	}
	defer rows.Close()

	result, err := collectBookingRows(rows)
	if err != nil {
		return nil, fmt.Errorf("upcoming for user: %w", err)
	}
	return result, nil
}

// ListForUser returns all bookings of a user, most recent start first.
func (s *Store) ListForUser(ctx context.Context, userID int64) ([]BookingRow, error) {
	query := bookingRowQuery + `
WHERE b.user_id = ?
ORDER BY b.start_time DESC`

	rows, err := s.conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list for user: %w", err)
	}
	defer rows.Close()

	result, err := collectBookingRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list for user: %w", err)
	}
	return result, nil
}

// ListForOwner pages through bookings across all venues of an owner,
// optionally narrowed to one court. courtID zero means no court filter.
func (s *Store) ListForOwner(ctx context.Context, ownerID, courtID int64, limit, offset int) ([]BookingRow, error) {
	query := bookingRowQuery + `
WHERE v.owner_id = ?`
	args := []any{ownerID}
	if courtID != 0 {
		query += ` AND b.court_id = ?`
		args = append(args, courtID)
	}
	query += `
ORDER BY b.start_time DESC
LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list for owner: %w", err)
	}
	defer rows.Close()

	result, err := collectBookingRows(rows)
	if err != nil {
		return nil, fmt.Errorf("list for owner: %w", err)
	}
	return result, nil
}

func (s *Store) CountForOwner(ctx context.Context, ownerID, courtID int64) (int, error) {
	query := `
SELECT COUNT(*)
FROM bookings b
JOIN courts c ON c.id = b.court_id
JOIN venues v ON v.id = c.venue_id
WHERE v.owner_id = ?`
	args := []any{ownerID}
	if courtID != 0 {
		query += ` AND b.court_id = ?`
		args = append(args, courtID)
	}

	var count int
	if err := s.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count for owner: %w", err)
	}
	return count, nil
}

// VenueBookingsSince returns CONFIRMED/COMPLETED bookings across a venue's
// courts with start time >= since. This is the single canonical fetch the
// revenue aggregator reduces over.
func (s *Store) VenueBookingsSince(ctx context.Context, venueID int64, since time.Time) ([]domain.Booking, error) {
	const query = `
SELECT b.id, b.user_id, b.court_id, b.start_time, b.end_time, b.total_price, b.status, b.created_at
FROM bookings b
JOIN courts c ON c.id = b.court_id
WHERE c.venue_id = ? AND b.start_time >= ?
  AND b.status IN ('CONFIRMED', 'COMPLETED')
ORDER BY b.start_time`

	rows, err := s.conn(ctx).QueryContext(ctx, query, venueID, since.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("venue bookings since: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("venue bookings since: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// RecentVenueBookings returns the latest bookings of a venue by start time.
func (s *Store) RecentVenueBookings(ctx context.Context, venueID int64, limit int) ([]BookingRow, error) {
	query := bookingRowQuery + `
WHERE v.id = ?
ORDER BY b.start_time DESC
LIMIT ?`

	rows, err := s.conn(ctx).QueryContext(ctx, query, venueID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent venue bookings: %w", err)
	}
	defer rows.Close()

	result, err := collectBookingRows(rows)
	if err != nil {
		return nil, fmt.Errorf("recent venue bookings: %w", err)
	}
	return result, nil
}
