package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"settlement/entity"

	"github.com/jmoiron/sqlx"
)

const tripColumns = `trip_id, campaign_id, total_capacity, booked, departure_time, version, created_at`

func (s *Store) CreateTrip(ctx context.Context, trip entity.Trip, events []any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `INSERT INTO trips (`+tripColumns+`)
			VALUES (:trip_id, :campaign_id, :total_capacity, :booked, :departure_time, :version, :created_at)
			ON CONFLICT (trip_id) DO NOTHING`, trip)
		if err != nil {
			return fmt.Errorf("inserting trip: %w", err)
		}

		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return entity.ConcurrentModification("trip", trip.TripID)
		}

		return s.publish(ctx, tx, events)
	})
}

func (s *Store) GetTrip(ctx context.Context, tripID string) (entity.Trip, error) {
	var trip entity.Trip
	err := s.db.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE trip_id = $1`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Trip{}, entity.NotFound("trip", tripID)
	}
	if err != nil {
		return entity.Trip{}, fmt.Errorf("selecting trip: %w", err)
	}
	return trip, nil
}

// reserveSeats books n seats with a single guarded update, so two concurrent
// reservations can never push booked past total_capacity.
func reserveSeats(ctx context.Context, tx *sqlx.Tx, tripID string, n int) error {
	res, err := tx.ExecContext(ctx, `UPDATE trips
		SET booked = booked + $1, version = version + 1
		WHERE trip_id = $2 AND booked + $1 <= total_capacity`, n, tripID)
	if err != nil {
		return fmt.Errorf("reserving seats: %w", err)
	}

	updated, err := affected(res)
	if err != nil {
		return err
	}
	if updated == 1 {
		return nil
	}

	var trip entity.Trip
	err = tx.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE trip_id = $1`, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.NotFound("trip", tripID)
	}
	if err != nil {
		return fmt.Errorf("selecting trip: %w", err)
	}

	if _, err := trip.Reserve(n); err != nil {
		return err
	}
	// Seats freed up between the two statements; the caller retries.
	return entity.ConcurrentModification("trip", tripID)
}

func releaseSeats(ctx context.Context, tx *sqlx.Tx, tripID string, n int) error {
	_, err := tx.ExecContext(ctx, `UPDATE trips
		SET booked = GREATEST(booked - $1, 0), version = version + 1
		WHERE trip_id = $2`, n, tripID)
	if err != nil {
		return fmt.Errorf("releasing seats: %w", err)
	}
	return nil
}
