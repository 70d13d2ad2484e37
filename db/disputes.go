package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"settlement/entity"

	"github.com/jmoiron/sqlx"
)

const disputeColumns = `dispute_id, booking_id, trip_id, campaign_id, type, raised_by, raised_by_role,
	description, disputed_amount, refunded_amount, status, resolution, applied_keys,
	version, created_at, updated_at`

type disputeRow struct {
	entity.Dispute
	AppliedKeys     jsonColumn[[]string] `db:"applied_keys"`
	ExpectedVersion int64                `db:"expected_version"`
}

func newDisputeRow(d entity.Dispute) disputeRow {
	return disputeRow{
		Dispute:     d,
		AppliedKeys: jsonColumn[[]string]{V: d.AppliedKeys},
	}
}

func (r disputeRow) toEntity() entity.Dispute {
	d := r.Dispute
	d.AppliedKeys = r.AppliedKeys.V
	return d
}

func (s *Store) CreateDispute(ctx context.Context, d entity.Dispute, events []any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `INSERT INTO disputes (`+disputeColumns+`)
			VALUES (:dispute_id, :booking_id, :trip_id, :campaign_id, :type, :raised_by, :raised_by_role,
				:description, :disputed_amount, :refunded_amount, :status, :resolution, :applied_keys,
				:version, :created_at, :updated_at)
			ON CONFLICT (dispute_id) DO NOTHING`, newDisputeRow(d))
		if err != nil {
			return fmt.Errorf("inserting dispute: %w", err)
		}

		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return entity.ConcurrentModification("dispute", d.DisputeID)
		}

		return s.publish(ctx, tx, events)
	})
}

func (s *Store) GetDispute(ctx context.Context, disputeID string) (entity.Dispute, error) {
	var row disputeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+disputeColumns+` FROM disputes WHERE dispute_id = $1`, disputeID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Dispute{}, entity.NotFound("dispute", disputeID)
	}
	if err != nil {
		return entity.Dispute{}, fmt.Errorf("selecting dispute: %w", err)
	}
	return row.toEntity(), nil
}

// ListDisputes returns the disputes of one booking, or all disputes when
// bookingID is empty.
func (s *Store) ListDisputes(ctx context.Context, bookingID string) ([]entity.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	var args []any
	if bookingID != "" {
		query += ` WHERE booking_id = $1`
		args = append(args, bookingID)
	}
	query += ` ORDER BY created_at, dispute_id`

	var rows []disputeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("selecting disputes: %w", err)
	}

	disputes := make([]entity.Dispute, 0, len(rows))
	for _, r := range rows {
		disputes = append(disputes, r.toEntity())
	}
	return disputes, nil
}

// UpdateDispute writes the dispute and its booking adjustment, if any, in
// one transaction.
func (s *Store) UpdateDispute(ctx context.Context, change entity.DisputeChange, events []any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		row := newDisputeRow(change.Dispute)
		row.ExpectedVersion = change.ExpectedVersion

		res, err := tx.NamedExecContext(ctx, `UPDATE disputes SET
				status = :status, resolution = :resolution, refunded_amount = :refunded_amount,
				applied_keys = :applied_keys, version = :version, updated_at = :updated_at
			WHERE dispute_id = :dispute_id AND version = :expected_version`, row)
		if err != nil {
			return fmt.Errorf("updating dispute: %w", err)
		}

		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return missingOrStale(ctx, tx, "dispute", `SELECT version FROM disputes WHERE dispute_id = $1`, change.Dispute.DisputeID)
		}

		if change.Booking != nil {
			if err := updateBooking(ctx, tx, *change.Booking); err != nil {
				return err
			}
		}

		return s.publish(ctx, tx, events)
	})
}
