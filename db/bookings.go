package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"settlement/entity"
	"strings"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `booking_id, traveler_id, campaign_id, trip_id, passenger_count,
	unit_price, subtotal, discount, total, paid, remaining, refunded,
	status, confirmed, stage, override_used, capacity_released, cancel_reason,
	schedule, payments, refunds, applied_keys, version, created_at, updated_at`

type bookingRow struct {
	entity.Booking
	Schedule    jsonColumn[[]entity.Installment]   `db:"schedule"`
	Payments    jsonColumn[[]entity.PaymentRecord] `db:"payments"`
	Refunds     jsonColumn[[]entity.RefundRecord]  `db:"refunds"`
	AppliedKeys jsonColumn[[]string]               `db:"applied_keys"`
	// ExpectedVersion is only bound by updates.
	ExpectedVersion int64 `db:"expected_version"`
}

func newBookingRow(b entity.Booking) bookingRow {
	return bookingRow{
		Booking:     b,
		Schedule:    jsonColumn[[]entity.Installment]{V: b.Schedule},
		Payments:    jsonColumn[[]entity.PaymentRecord]{V: b.Payments},
		Refunds:     jsonColumn[[]entity.RefundRecord]{V: b.Refunds},
		AppliedKeys: jsonColumn[[]string]{V: b.AppliedKeys},
	}
}

func (r bookingRow) toEntity() entity.Booking {
	b := r.Booking
	b.Schedule = r.Schedule.V
	b.Payments = r.Payments.V
	b.Refunds = r.Refunds.V
	b.AppliedKeys = r.AppliedKeys.V
	return b
}

// CreateBooking reserves the booking's seats and inserts it in one
// transaction.
func (s *Store) CreateBooking(ctx context.Context, b entity.Booking, events []any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := reserveSeats(ctx, tx, b.TripID, b.PassengerCount); err != nil {
			return err
		}

		res, err := tx.NamedExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
			VALUES (:booking_id, :traveler_id, :campaign_id, :trip_id, :passenger_count,
				:unit_price, :subtotal, :discount, :total, :paid, :remaining, :refunded,
				:status, :confirmed, :stage, :override_used, :capacity_released, :cancel_reason,
				:schedule, :payments, :refunds, :applied_keys, :version, :created_at, :updated_at)
			ON CONFLICT (booking_id) DO NOTHING`, newBookingRow(b))
		if err != nil {
			return fmt.Errorf("inserting booking: %w", err)
		}

		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return entity.ConcurrentModification("booking", b.BookingID)
		}

		return s.publish(ctx, tx, events)
	})
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (entity.Booking, error) {
	var row bookingRow
	err := s.db.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id = $1`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Booking{}, entity.NotFound("booking", bookingID)
	}
	if err != nil {
		return entity.Booking{}, fmt.Errorf("selecting booking: %w", err)
	}
	return row.toEntity(), nil
}

func (s *Store) ListBookings(ctx context.Context, filter entity.BookingFilter) ([]entity.Booking, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("campaign_id", filter.CampaignID)
	add("trip_id", filter.TripID)
	add("traveler_id", filter.TravelerID)
	add("status", string(filter.Status))

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at, booking_id`

	var rows []bookingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("selecting bookings: %w", err)
	}

	bookings := make([]entity.Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, r.toEntity())
	}
	return bookings, nil
}

func (s *Store) UpdateBooking(ctx context.Context, change entity.BookingChange, events []any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := updateBooking(ctx, tx, change); err != nil {
			return err
		}
		return s.publish(ctx, tx, events)
	})
}

func updateBooking(ctx context.Context, tx *sqlx.Tx, change entity.BookingChange) error {
	row := newBookingRow(change.Booking)
	row.ExpectedVersion = change.ExpectedVersion

	res, err := tx.NamedExecContext(ctx, `UPDATE bookings SET
			discount = :discount, total = :total, paid = :paid, remaining = :remaining, refunded = :refunded,
			status = :status, confirmed = :confirmed, stage = :stage, override_used = :override_used,
			capacity_released = :capacity_released, cancel_reason = :cancel_reason,
			schedule = :schedule, payments = :payments, refunds = :refunds, applied_keys = :applied_keys,
			version = :version, updated_at = :updated_at
		WHERE booking_id = :booking_id AND version = :expected_version`, row)
	if err != nil {
		return fmt.Errorf("updating booking: %w", err)
	}

	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return missingOrStale(ctx, tx, "booking", `SELECT version FROM bookings WHERE booking_id = $1`, change.Booking.BookingID)
	}

	if change.ReleaseSeats > 0 {
		if err := releaseSeats(ctx, tx, change.Booking.TripID, change.ReleaseSeats); err != nil {
			return err
		}
	}

	return nil
}

// missingOrStale explains why a version-checked update touched no rows.
func missingOrStale(ctx context.Context, tx *sqlx.Tx, resource, query, id string) error {
	var version int64
	err := tx.GetContext(ctx, &version, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.NotFound(resource, id)
	}
	if err != nil {
		return fmt.Errorf("selecting %s version: %w", resource, err)
	}
	return entity.ConcurrentModification(resource, id)
}
