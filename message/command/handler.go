// Package command runs asynchronous ledger commands taken off the message
// bus.
package command

import (
	"context"
	"fmt"
	commands "settlement/command"
	"settlement/entity"
	"settlement/ledger"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
)

type Ledger interface {
	CreateTrip(ctx context.Context, p ledger.CreateTripParams, meta ledger.Meta) (ledger.TripResult, error)
	CreateBooking(ctx context.Context, p ledger.CreateBookingParams, meta ledger.Meta) (ledger.BookingResult, error)
	ConfirmBooking(ctx context.Context, bookingID string, meta ledger.Meta) (ledger.BookingResult, error)
	RecordPayment(ctx context.Context, bookingID string, amount entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	AdvanceBooking(ctx context.Context, bookingID string, target entity.BookingStatus, override bool, meta ledger.Meta) (ledger.BookingResult, error)
	CancelBooking(ctx context.Context, bookingID, reason string, refund *entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	RefundBooking(ctx context.Context, bookingID string, amount entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	ScheduleInstallments(ctx context.Context, bookingID string, plan []entity.InstallmentPlan, meta ledger.Meta) (ledger.BookingResult, error)
	MarkInstallmentPaid(ctx context.Context, bookingID string, index int, paidAt time.Time, meta ledger.Meta) (ledger.BookingResult, error)
	OpenDispute(ctx context.Context, p ledger.OpenDisputeParams, meta ledger.Meta) (ledger.DisputeResult, error)
	TransitionDispute(ctx context.Context, disputeID string, t entity.DisputeTransition, meta ledger.Meta) (ledger.DisputeResult, error)
}

type Handler struct {
	ledger Ledger
}

func NewHandler(l Ledger) Handler {
	return Handler{
		ledger: l,
	}
}

func (h Handler) Handlers() []cqrs.CommandHandler {
	return []cqrs.CommandHandler{
		cqrs.NewCommandHandler("create-trip", h.CreateTrip),
		cqrs.NewCommandHandler("create-booking", h.CreateBooking),
		cqrs.NewCommandHandler("confirm-booking", h.ConfirmBooking),
		cqrs.NewCommandHandler("record-payment", h.RecordPayment),
		cqrs.NewCommandHandler("advance-booking", h.AdvanceBooking),
		cqrs.NewCommandHandler("cancel-booking", h.CancelBooking),
		cqrs.NewCommandHandler("refund-booking", h.RefundBooking),
		cqrs.NewCommandHandler("schedule-installments", h.ScheduleInstallments),
		cqrs.NewCommandHandler("mark-installment-paid", h.MarkInstallmentPaid),
		cqrs.NewCommandHandler("open-dispute", h.OpenDispute),
		cqrs.NewCommandHandler("transition-dispute", h.TransitionDispute),
	}
}

func meta(actor, idempotencyKey string) ledger.Meta {
	return ledger.Meta{Actor: actor, IdempotencyKey: idempotencyKey}
}

func (h Handler) CreateTrip(ctx context.Context, cmd *commands.CreateTrip) error {
	res, err := h.ledger.CreateTrip(ctx, ledger.CreateTripParams{
		TripID:        cmd.TripID,
		CampaignID:    cmd.CampaignID,
		TotalCapacity: cmd.TotalCapacity,
		DepartureTime: cmd.DepartureTime,
	}, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "creating trip", res.Warnings, err)
}

func (h Handler) CreateBooking(ctx context.Context, cmd *commands.CreateBooking) error {
	res, err := h.ledger.CreateBooking(ctx, ledger.CreateBookingParams{
		BookingID:      cmd.BookingID,
		TravelerID:     cmd.TravelerID,
		TripID:         cmd.TripID,
		PassengerCount: cmd.PassengerCount,
		UnitPrice:      cmd.UnitPrice,
		Discount:       cmd.Discount,
	}, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "creating booking", res.Warnings, err)
}

func (h Handler) ConfirmBooking(ctx context.Context, cmd *commands.ConfirmBooking) error {
	res, err := h.ledger.ConfirmBooking(ctx, cmd.BookingID, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "confirming booking", res.Warnings, err)
}

func (h Handler) RecordPayment(ctx context.Context, cmd *commands.RecordPayment) error {
	res, err := h.ledger.RecordPayment(ctx, cmd.BookingID, cmd.Amount, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "recording payment", res.Warnings, err)
}

func (h Handler) AdvanceBooking(ctx context.Context, cmd *commands.AdvanceBooking) error {
	res, err := h.ledger.AdvanceBooking(ctx, cmd.BookingID, cmd.Target, cmd.Override, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "advancing booking", res.Warnings, err)
}

func (h Handler) CancelBooking(ctx context.Context, cmd *commands.CancelBooking) error {
	res, err := h.ledger.CancelBooking(ctx, cmd.BookingID, cmd.Reason, cmd.Refund, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "cancelling booking", res.Warnings, err)
}

func (h Handler) RefundBooking(ctx context.Context, cmd *commands.RefundBooking) error {
	res, err := h.ledger.RefundBooking(ctx, cmd.BookingID, cmd.Amount, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "refunding booking", res.Warnings, err)
}

func (h Handler) ScheduleInstallments(ctx context.Context, cmd *commands.ScheduleInstallments) error {
	res, err := h.ledger.ScheduleInstallments(ctx, cmd.BookingID, cmd.Installments, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "scheduling installments", res.Warnings, err)
}

func (h Handler) MarkInstallmentPaid(ctx context.Context, cmd *commands.MarkInstallmentPaid) error {
	res, err := h.ledger.MarkInstallmentPaid(ctx, cmd.BookingID, cmd.Index, cmd.PaidAt, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "marking installment paid", res.Warnings, err)
}

func (h Handler) OpenDispute(ctx context.Context, cmd *commands.OpenDispute) error {
	res, err := h.ledger.OpenDispute(ctx, ledger.OpenDisputeParams{
		DisputeID:    cmd.DisputeID,
		BookingID:    cmd.BookingID,
		Type:         cmd.Type,
		RaisedByRole: cmd.RaisedByRole,
		Description:  cmd.Description,
		Disputed:     cmd.Disputed,
	}, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "opening dispute", res.Warnings, err)
}

func (h Handler) TransitionDispute(ctx context.Context, cmd *commands.TransitionDispute) error {
	res, err := h.ledger.TransitionDispute(ctx, cmd.DisputeID, entity.DisputeTransition{
		Target:     cmd.Target,
		Resolution: cmd.Resolution,
		Refund:     cmd.Refund,
	}, meta(cmd.Header.Actor, cmd.Header.IdempotencyKey))
	return settle(ctx, "transitioning dispute", res.Warnings, err)
}

// settle decides whether the message is acked. Rejected commands will be
// rejected again on redelivery, so they are logged and dropped; retryable
// failures go back to the router.
func settle(ctx context.Context, doing string, warnings []error, err error) error {
	logger := log.FromContext(ctx)
	for _, w := range warnings {
		logger.WithError(w).Warn("Command applied with a warning")
	}

	if err == nil {
		return nil
	}
	if kind := entity.KindOf(err); kind != "" && !entity.IsRetryable(err) {
		logger.WithError(err).WithField("kind", kind).Warn("Command rejected")
		return nil
	}
	return fmt.Errorf("%s: %w", doing, err)
}
