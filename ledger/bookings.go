package ledger

import (
	"context"
	"errors"
	"fmt"
	"settlement/entity"
	"settlement/event"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type BookingResult struct {
	Booking entity.Booking
	// Applied is false when the command was a replay or a no-op.
	Applied bool
	// Warnings carry entity.ErrAuditWriteFailed errors. The booking change
	// itself was stored.
	Warnings []error
}

type CreateBookingParams struct {
	BookingID      string
	TravelerID     string
	TripID         string
	PassengerCount int
	UnitPrice      entity.Money
	Discount       entity.Money
}

func (l *Ledger) CreateBooking(ctx context.Context, p CreateBookingParams, meta Meta) (BookingResult, error) {
	return run(l, ctx, "create_booking", func(ctx context.Context) (BookingResult, error) {
		bookingID := idFor(entity.EntityBooking, p.BookingID, meta.IdempotencyKey)

		for attempt := 1; ; attempt++ {
			existing, err := l.store.GetBooking(ctx, bookingID)
			if err == nil {
				return BookingResult{Booking: existing}, nil
			}
			if !errors.Is(err, entity.ErrNotFound) {
				return BookingResult{}, fmt.Errorf("looking up booking: %w", err)
			}

			trip, err := l.store.GetTrip(ctx, p.TripID)
			if err != nil {
				return BookingResult{}, fmt.Errorf("loading trip: %w", err)
			}

			b, err := l.lifecycle.NewBooking(entity.NewBookingParams{
				BookingID:      bookingID,
				TravelerID:     p.TravelerID,
				CampaignID:     trip.CampaignID,
				TripID:         trip.TripID,
				PassengerCount: p.PassengerCount,
				UnitPrice:      p.UnitPrice,
				Discount:       p.Discount,
				CreatedAt:      l.now(),
			})
			if err != nil {
				return BookingResult{}, err
			}
			if _, err := trip.Reserve(b.PassengerCount); err != nil {
				return BookingResult{}, err
			}
			b.Version = 1

			events := []any{event.NewBookingCreated(meta.IdempotencyKey, meta.Actor, b)}
			err = l.store.CreateBooking(ctx, b, events)
			// A conflict is either the same create landing first, which the
			// next lookup returns, or seats moving under the guarded update.
			if l.retryable(ctx, "create_booking", attempt, err) {
				continue
			}
			if errors.Is(err, entity.ErrConcurrentModification) {
				if existing, getErr := l.store.GetBooking(ctx, bookingID); getErr == nil {
					return BookingResult{Booking: existing}, nil
				}
			}
			if err != nil {
				return BookingResult{}, fmt.Errorf("storing booking: %w", err)
			}
			l.trackTrip(ctx, b.TripID)

			log.FromContext(ctx).
				WithField("booking_id", b.BookingID).
				WithField("trip_id", b.TripID).
				Info("Booking created")

			warnings := l.record(ctx, meta.Actor, entity.ActionBookingCreated, entity.EntityBooking, b.BookingID, entity.CreatedBooking(b))
			return BookingResult{Booking: b, Applied: true, Warnings: warnings}, nil
		}
	})
}

func (l *Ledger) ConfirmBooking(ctx context.Context, bookingID string, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "confirm_booking", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.Confirm(b, meta.IdempotencyKey, now)
			return updated, entity.ActionBookingConfirmed, applied, err
		})
}

func (l *Ledger) RecordPayment(ctx context.Context, bookingID string, amount entity.Money, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "record_payment", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.RecordPayment(b, amount, meta.IdempotencyKey, now)
			return updated, entity.ActionPaymentRecorded, applied, err
		})
}

// AdvanceBooking moves the booking to an operational status. An override
// that actually bypasses the payment check is audited separately.
func (l *Ledger) AdvanceBooking(ctx context.Context, bookingID string, target entity.BookingStatus, override bool, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "advance_booking", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.Advance(b, target, override, meta.IdempotencyKey, now)
			action := entity.ActionBookingAdvanced
			if override && !b.PaidUp() && !b.Confirmed {
				action = entity.ActionBookingAdvancedOverride
			}
			return updated, action, applied, err
		})
}

// CancelBooking needs refund equal to the paid amount when anything was paid.
// Cancelling a cancelled or refunded booking returns it unchanged.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID, reason string, refund *entity.Money, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "cancel_booking", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.Cancel(b, reason, refund, now)
			return updated, entity.ActionBookingCancelled, applied, err
		})
}

func (l *Ledger) RefundBooking(ctx context.Context, bookingID string, amount entity.Money, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "refund_booking", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.Refund(b, amount, now)
			return updated, entity.ActionBookingRefunded, applied, err
		})
}

func (l *Ledger) ScheduleInstallments(ctx context.Context, bookingID string, plan []entity.InstallmentPlan, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "schedule_installments", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			updated, applied, err := l.lifecycle.Schedule(b, plan, meta.IdempotencyKey, now)
			return updated, entity.ActionScheduleSet, applied, err
		})
}

// MarkInstallmentPaid pays installment index (1-based). A zero paidAt means
// now.
func (l *Ledger) MarkInstallmentPaid(ctx context.Context, bookingID string, index int, paidAt time.Time, meta Meta) (BookingResult, error) {
	return l.mutateBooking(ctx, "mark_installment_paid", bookingID, meta,
		func(b entity.Booking, now time.Time) (entity.Booking, entity.Action, bool, error) {
			if paidAt.IsZero() {
				paidAt = now
			}
			updated, applied, err := l.lifecycle.MarkInstallmentPaid(b, index, paidAt, meta.IdempotencyKey)
			return updated, entity.ActionInstallmentPaid, applied, err
		})
}

type bookingMutation func(b entity.Booking, now time.Time) (updated entity.Booking, action entity.Action, applied bool, err error)

func (l *Ledger) mutateBooking(ctx context.Context, op, bookingID string, meta Meta, mutate bookingMutation) (BookingResult, error) {
	return run(l, ctx, op, func(ctx context.Context) (BookingResult, error) {
		for attempt := 1; ; attempt++ {
			before, err := l.store.GetBooking(ctx, bookingID)
			if err != nil {
				return BookingResult{}, fmt.Errorf("loading booking: %w", err)
			}

			after, action, applied, err := mutate(before, l.now())
			if err != nil {
				return BookingResult{}, err
			}
			if !applied {
				return BookingResult{Booking: before}, nil
			}

			release := 0
			if entity.ReleaseSeats(&after) {
				release = after.PassengerCount
			}
			after.Version = before.Version + 1

			change := entity.BookingChange{Booking: after, ExpectedVersion: before.Version, ReleaseSeats: release}
			events := []any{event.NewBookingStatusChanged(meta.IdempotencyKey, meta.Actor, action, before, after)}

			err = l.store.UpdateBooking(ctx, change, events)
			if l.retryable(ctx, op, attempt, err) {
				continue
			}
			if err != nil {
				return BookingResult{}, fmt.Errorf("storing booking: %w", err)
			}

			if release > 0 {
				l.trackTrip(ctx, after.TripID)
			}

			warnings := l.record(ctx, meta.Actor, action, entity.EntityBooking, after.BookingID, entity.DiffBooking(before, after))
			return BookingResult{Booking: after, Applied: true, Warnings: warnings}, nil
		}
	})
}

// trackTrip refreshes the remaining-seats gauge from the stored trip.
func (l *Ledger) trackTrip(ctx context.Context, tripID string) {
	trip, err := l.store.GetTrip(ctx, tripID)
	if err != nil {
		log.FromContext(ctx).WithError(err).WithField("trip_id", tripID).Warn("Could not refresh trip gauge")
		return
	}
	l.monitor.TrackTripRemaining(tripID, trip.Remaining())
}
