package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tupichanga/courtbook/internal/domain"
)

const venueColumns = `id, owner_id, name, description, address, city, district, image_url, payment_qr_url, maps_url, created_at`

func scanVenue(row interface{ Scan(...any) error }) (domain.Venue, error) {
	var v domain.Venue
	var createdAt int64
	err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Address,
		&v.City, &v.District, &v.ImageURL, &v.PaymentQRURL, &v.MapsURL, &createdAt)
	if err != nil {
		return domain.Venue{}, err
	}
	v.CreatedAt = time.Unix(createdAt, 0).UTC()
	return v, nil
}

func (s *Store) CreateVenue(ctx context.Context, v domain.Venue) (int64, error) {
	const stmt = `
INSERT INTO venues (owner_id, name, description, address, city, district, image_url, payment_qr_url, maps_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.conn(ctx).ExecContext(ctx, stmt,
		v.OwnerID, v.Name, v.Description, v.Address, v.City, v.District,
		v.ImageURL, v.PaymentQRURL, v.MapsURL)
	if err != nil {
		return 0, fmt.Errorf("create venue: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UpdateVenue(ctx context.Context, v domain.Venue) error {
	const stmt = `
UPDATE venues
SET name = ?, description = ?, address = ?, city = ?, district = ?,
    image_url = ?, payment_qr_url = ?, maps_url = ?
WHERE id = ?`

	res, err := s.conn(ctx).ExecContext(ctx, stmt,
		v.Name, v.Description, v.Address, v.City, v.District,
		v.ImageURL, v.PaymentQRURL, v.MapsURL, v.ID)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetVenue(ctx context.Context, id int64) (domain.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`
	v, err := scanVenue(s.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Venue{}, domain.ErrNotFound
		}
		return domain.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

// ListVenues returns venues ordered by name, optionally filtered by city.
func (s *Store) ListVenues(ctx context.Context, city string) ([]domain.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues`
	args := []any{}
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY name`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("list venues: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *Store) ListVenuesByOwner(ctx context.Context, ownerID int64) ([]domain.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE owner_id = ? ORDER BY name`

	rows, err := s.conn(ctx).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list venues by owner: %w", err)
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("list venues by owner: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}
