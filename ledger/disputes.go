package ledger

import (
	"context"
	"errors"
	"fmt"
	"settlement/entity"
	"settlement/event"
)

type DisputeResult struct {
	Dispute entity.Dispute
	// Booking is set when resolving the dispute refunded money on it.
	Booking  *entity.Booking
	Applied  bool
	Warnings []error
}

type OpenDisputeParams struct {
	DisputeID    string
	BookingID    string
	Type         entity.DisputeType
	RaisedByRole entity.Role
	Description  string
	Disputed     entity.Money
}

func (l *Ledger) OpenDispute(ctx context.Context, p OpenDisputeParams, meta Meta) (DisputeResult, error) {
	return run(l, ctx, "open_dispute", func(ctx context.Context) (DisputeResult, error) {
		disputeID := idFor(entity.EntityDispute, p.DisputeID, meta.IdempotencyKey)

		existing, err := l.store.GetDispute(ctx, disputeID)
		if err == nil {
			return DisputeResult{Dispute: existing}, nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return DisputeResult{}, fmt.Errorf("looking up dispute: %w", err)
		}

		b, err := l.store.GetBooking(ctx, p.BookingID)
		if err != nil {
			return DisputeResult{}, fmt.Errorf("loading booking: %w", err)
		}

		d, err := entity.OpenDispute(b, entity.OpenDisputeParams{
			DisputeID:    disputeID,
			Type:         p.Type,
			RaisedBy:     meta.Actor,
			RaisedByRole: p.RaisedByRole,
			Description:  p.Description,
			Disputed:     p.Disputed,
			OpenedAt:     l.now(),
		})
		if err != nil {
			return DisputeResult{}, err
		}
		d.Version = 1

		events := []any{event.NewDisputeOpened(meta.IdempotencyKey, meta.Actor, d)}
		if err := l.store.CreateDispute(ctx, d, events); err != nil {
			return DisputeResult{}, fmt.Errorf("storing dispute: %w", err)
		}

		warnings := l.record(ctx, meta.Actor, entity.ActionDisputeOpened, entity.EntityDispute, d.DisputeID, entity.DiffDispute(entity.Dispute{}, d))
		return DisputeResult{Dispute: d, Applied: true, Warnings: warnings}, nil
	})
}

// TransitionDispute moves a dispute along the workflow. Resolving with a
// refund shrinks the booking's total and paid amounts in the same write.
func (l *Ledger) TransitionDispute(ctx context.Context, disputeID string, t entity.DisputeTransition, meta Meta) (DisputeResult, error) {
	const op = "transition_dispute"
	return run(l, ctx, op, func(ctx context.Context) (DisputeResult, error) {
		for attempt := 1; ; attempt++ {
			before, err := l.store.GetDispute(ctx, disputeID)
			if err != nil {
				return DisputeResult{}, fmt.Errorf("loading dispute: %w", err)
			}
			booking, err := l.store.GetBooking(ctx, before.BookingID)
			if err != nil {
				return DisputeResult{}, fmt.Errorf("loading booking: %w", err)
			}

			now := l.now()
			after, applied, err := entity.TransitionDispute(before, booking, t, meta.IdempotencyKey, now)
			if err != nil {
				return DisputeResult{}, err
			}
			if !applied {
				return DisputeResult{Dispute: before}, nil
			}
			after.Version = before.Version + 1

			change := entity.DisputeChange{Dispute: after, ExpectedVersion: before.Version}
			events := []any{event.NewDisputeStatusChanged(meta.IdempotencyKey, meta.Actor, before, after)}

			var adjusted *entity.Booking
			if after.Status == entity.DisputeResolved && after.Refunded.IsPositive() {
				b, err := l.lifecycle.ApplyDisputeRefund(booking, after, now)
				if err != nil {
					return DisputeResult{}, err
				}
				if err := b.CheckSchedule(); err != nil {
					return DisputeResult{}, err
				}
				b.Version = booking.Version + 1
				adjusted = &b
				change.Booking = &entity.BookingChange{Booking: b, ExpectedVersion: booking.Version}
				events = append(events, event.NewBookingStatusChanged(meta.IdempotencyKey, meta.Actor, entity.ActionRefundAdjusted, booking, b))
			}

			err = l.store.UpdateDispute(ctx, change, events)
			if l.retryable(ctx, op, attempt, err) {
				continue
			}
			if err != nil {
				return DisputeResult{}, fmt.Errorf("storing dispute: %w", err)
			}

			warnings := l.record(ctx, meta.Actor, entity.ActionDisputeTransitioned, entity.EntityDispute, after.DisputeID, entity.DiffDispute(before, after))
			if adjusted != nil {
				warnings = append(warnings, l.record(ctx, meta.Actor, entity.ActionRefundAdjusted, entity.EntityBooking, adjusted.BookingID, entity.DiffBooking(booking, *adjusted))...)
			}
			return DisputeResult{Dispute: after, Booking: adjusted, Applied: true, Warnings: warnings}, nil
		}
	})
}
