// Package db persists the ledger in Postgres. Every write runs in one
// transaction together with its outbox events.
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Outbox stores events inside the caller's transaction so they are only
// forwarded once the write commits.
type Outbox interface {
	PublishInTx(ctx context.Context, tx *sql.Tx, events ...any) error
}

type Store struct {
	db     *sqlx.DB
	outbox Outbox
}

// NewStore returns a store writing events to outbox. outbox may be nil.
func NewStore(db *sqlx.DB, outbox Outbox) *Store {
	return &Store{
		db:     db,
		outbox: outbox,
	}
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) publish(ctx context.Context, tx *sqlx.Tx, events []any) error {
	if s.outbox == nil || len(events) == 0 {
		return nil
	}
	if err := s.outbox.PublishInTx(ctx, tx.Tx, events...); err != nil {
		return fmt.Errorf("publishing events in transaction: %w", err)
	}
	return nil
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return n, nil
}

// jsonColumn stores a Go value in a JSONB column.
type jsonColumn[T any] struct {
	V T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea, which JSONB rejects.
	return string(b), nil
}

func (c *jsonColumn[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		var zero T
		c.V = zero
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a JSON column", src)
	}
	return json.Unmarshal(data, &c.V)
}
