package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	if err := CreateTripsTable(ctx, db); err != nil {
		return fmt.Errorf("creating trips table: %w", err)
	}

	if err := CreateBookingsTable(ctx, db); err != nil {
		return fmt.Errorf("creating bookings table: %w", err)
	}

	if err := CreateDisputesTable(ctx, db); err != nil {
		return fmt.Errorf("creating disputes table: %w", err)
	}

	if err := CreateAuditEntriesTable(ctx, db); err != nil {
		return fmt.Errorf("creating audit entries table: %w", err)
	}

	return nil
}

func CreateTripsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS trips (
		trip_id VARCHAR(255) PRIMARY KEY,
		campaign_id VARCHAR(255) NOT NULL,
		total_capacity INTEGER NOT NULL CHECK (total_capacity > 0),
		booked INTEGER NOT NULL DEFAULT 0 CHECK (booked >= 0 AND booked <= total_capacity),
		departure_time TIMESTAMP WITH TIME ZONE NOT NULL,
		version BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	return err
}

func CreateBookingsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS bookings (
		booking_id VARCHAR(255) PRIMARY KEY,
		traveler_id VARCHAR(255) NOT NULL,
		campaign_id VARCHAR(255) NOT NULL,
		trip_id VARCHAR(255) NOT NULL REFERENCES trips (trip_id),
		passenger_count INTEGER NOT NULL,
		unit_price NUMERIC(14, 3) NOT NULL,
		subtotal NUMERIC(14, 3) NOT NULL,
		discount NUMERIC(14, 3) NOT NULL,
		total NUMERIC(14, 3) NOT NULL,
		paid NUMERIC(14, 3) NOT NULL,
		remaining NUMERIC(14, 3) NOT NULL,
		refunded NUMERIC(14, 3) NOT NULL,
		status VARCHAR(32) NOT NULL,
		confirmed BOOLEAN NOT NULL,
		stage VARCHAR(32) NOT NULL,
		override_used BOOLEAN NOT NULL,
		capacity_released BOOLEAN NOT NULL,
		cancel_reason TEXT NOT NULL,
		schedule JSONB NOT NULL,
		payments JSONB NOT NULL,
		refunds JSONB NOT NULL,
		applied_keys JSONB NOT NULL,
		version BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS bookings_campaign_id_idx ON bookings (campaign_id, created_at);`)
	return err
}

func CreateDisputesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS disputes (
		dispute_id VARCHAR(255) PRIMARY KEY,
		booking_id VARCHAR(255) NOT NULL REFERENCES bookings (booking_id),
		trip_id VARCHAR(255) NOT NULL,
		campaign_id VARCHAR(255) NOT NULL,
		type VARCHAR(32) NOT NULL,
		raised_by VARCHAR(255) NOT NULL,
		raised_by_role VARCHAR(32) NOT NULL,
		description TEXT NOT NULL,
		disputed_amount NUMERIC(14, 3) NOT NULL,
		refunded_amount NUMERIC(14, 3) NOT NULL,
		status VARCHAR(32) NOT NULL,
		resolution TEXT NOT NULL,
		applied_keys JSONB NOT NULL,
		version BIGINT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	return err
}

func CreateAuditEntriesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit_entries (
		entry_id VARCHAR(255) PRIMARY KEY,
		actor VARCHAR(255) NOT NULL,
		action VARCHAR(64) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id VARCHAR(255) NOT NULL,
		changes JSONB NOT NULL,
		recorded_at TIMESTAMP WITH TIME ZONE NOT NULL
	);
	CREATE INDEX IF NOT EXISTS audit_entries_entity_idx ON audit_entries (entity_type, entity_id, recorded_at);`)
	return err
}
