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

const userColumns = `id, email, name, phone, image_url, password_hash, role, plan, subscription_status, created_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.ImageURL,
		&u.PasswordHash, &u.Role, &u.Plan, &u.SubscriptionStatus, &createdAt)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// CreateUser inserts a new user. A duplicate email maps to ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	const stmt = `
INSERT INTO users (email, name, phone, image_url, password_hash, role, plan, subscription_status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.conn(ctx).ExecContext(ctx, stmt,
		u.Email, u.Name, u.Phone, u.ImageURL, u.PasswordHash, u.Role, u.Plan, u.SubscriptionStatus)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, domain.ErrEmailTaken
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// UpdateUserProfile updates the mutable profile fields. The password hash
// is only replaced when newHash is non-empty.
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, name, phone, imageURL, newHash string) error {
	const stmt = `
UPDATE users
SET name = ?, phone = ?, image_url = ?,
    password_hash = CASE WHEN ? = '' THEN password_hash ELSE ? END
WHERE id = ?`

	res, err := s.conn(ctx).ExecContext(ctx, stmt, name, phone, imageURL, newHash, newHash, id)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
