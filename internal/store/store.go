// Package store is the SQLite persistence layer. All methods run against
// the transaction carried by the context when one is present, so services
// can compose conflict checks and writes atomically via DB.WithTx.
package store

import (
	"context"

	"github.com/tupichanga/courtbook/internal/db"
)

// Store aggregates the per-entity queries over one injected DB handle.
type Store struct {
	db *db.DB
}

func New(database *db.DB) *Store {
	return &Store{db: database}
}

// WithTx runs fn inside a single database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithTx(ctx, fn)
}

func (s *Store) conn(ctx context.Context) db.Querier {
	return s.db.Conn(ctx)
}
