package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"settlement/entity"
	"settlement/ledger"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

const (
	headerKeyIdempotencyKey = "Idempotency-Key"
	headerKeyActor          = "Actor-ID"
	headerKeyPrefer         = "Prefer"

	defaultActor = "api"
)

type Ledger interface {
	CreateTrip(ctx context.Context, p ledger.CreateTripParams, meta ledger.Meta) (ledger.TripResult, error)
	GetTrip(ctx context.Context, tripID string) (entity.Trip, error)

	CreateBooking(ctx context.Context, p ledger.CreateBookingParams, meta ledger.Meta) (ledger.BookingResult, error)
	GetBooking(ctx context.Context, bookingID string) (entity.Booking, error)
	ListBookings(ctx context.Context, filter entity.BookingFilter) ([]entity.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string, meta ledger.Meta) (ledger.BookingResult, error)
	RecordPayment(ctx context.Context, bookingID string, amount entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	AdvanceBooking(ctx context.Context, bookingID string, target entity.BookingStatus, override bool, meta ledger.Meta) (ledger.BookingResult, error)
	CancelBooking(ctx context.Context, bookingID, reason string, refund *entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	RefundBooking(ctx context.Context, bookingID string, amount entity.Money, meta ledger.Meta) (ledger.BookingResult, error)
	ScheduleInstallments(ctx context.Context, bookingID string, plan []entity.InstallmentPlan, meta ledger.Meta) (ledger.BookingResult, error)
	MarkInstallmentPaid(ctx context.Context, bookingID string, index int, paidAt time.Time, meta ledger.Meta) (ledger.BookingResult, error)

	OpenDispute(ctx context.Context, p ledger.OpenDisputeParams, meta ledger.Meta) (ledger.DisputeResult, error)
	GetDispute(ctx context.Context, disputeID string) (entity.Dispute, error)
	ListDisputes(ctx context.Context, bookingID string) ([]entity.Dispute, error)
	TransitionDispute(ctx context.Context, disputeID string, t entity.DisputeTransition, meta ledger.Meta) (ledger.DisputeResult, error)

	AuditTrail(ctx context.Context, entityType entity.EntityType, entityID string) ([]entity.AuditEntry, error)
	CampaignSummary(ctx context.Context, campaignID string, w entity.Window) (entity.FinancialSummary, error)
	PlatformSummary(ctx context.Context, w entity.Window) (entity.PlatformSummary, error)
}

type CommandSender interface {
	Send(ctx context.Context, cmd any) error
}

type handler struct {
	ledger        Ledger
	commandSender CommandSender
}

// errorResponse is sent as {"error": {"kind": ..., "message": ...}}.
type errorResponse struct {
	Kind    entity.Kind `json:"kind,omitempty"`
	Message string      `json:"message"`
}

// ledgerError maps a ledger error kind onto an HTTP status.
func ledgerError(err error) error {
	code := http.StatusInternalServerError
	kind := entity.KindOf(err)
	switch kind {
	case entity.KindInvalidAmount, entity.KindScheduleMismatch, entity.KindResolutionRequired:
		code = http.StatusBadRequest
	case entity.KindNotFound:
		code = http.StatusNotFound
	case entity.KindConcurrentModification, entity.KindCapacityExceeded, entity.KindAlreadyPaid:
		code = http.StatusConflict
	case entity.KindIllegalTransition, entity.KindPaymentIncomplete, entity.KindRefundRequired:
		code = http.StatusUnprocessableEntity
	case entity.KindDependencyUnavailable:
		code = http.StatusServiceUnavailable
	}

	message := errorResponse{Kind: kind, Message: err.Error()}
	if code == http.StatusInternalServerError {
		message.Message = http.StatusText(code)
	}

	return &echo.HTTPError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

func badRequest(message string, err error) error {
	return &echo.HTTPError{
		Code:     http.StatusBadRequest,
		Message:  errorResponse{Message: message},
		Internal: err,
	}
}

func bind(c echo.Context, request any) error {
	if err := c.Bind(request); err != nil {
		return badRequest("failed to parse request", fmt.Errorf("failed to bind request: %w", err))
	}
	return nil
}

func meta(c echo.Context) ledger.Meta {
	actor := c.Request().Header.Get(headerKeyActor)
	if actor == "" {
		actor = defaultActor
	}
	return ledger.Meta{
		Actor:          actor,
		IdempotencyKey: c.Request().Header.Get(headerKeyIdempotencyKey),
	}
}

func wantsAsync(c echo.Context) bool {
	return c.Request().Header.Get(headerKeyPrefer) == "respond-async"
}

// sendCommand hands cmd to the command bus and answers 202.
func (h handler) sendCommand(c echo.Context, cmd any) error {
	if h.commandSender == nil {
		return badRequest("asynchronous processing is not enabled", errors.New("no command sender configured"))
	}
	if c.Request().Header.Get(headerKeyIdempotencyKey) == "" {
		return badRequest("asynchronous commands need an Idempotency-Key header", errors.New("missing idempotency key"))
	}

	if err := h.commandSender.Send(c.Request().Context(), cmd); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusServiceUnavailable,
			Message:  errorResponse{Kind: entity.KindDependencyUnavailable, Message: "could not queue command"},
			Internal: fmt.Errorf("sending command: %w", err),
		}
	}

	return c.NoContent(http.StatusAccepted)
}

type mutationResponse[T any] struct {
	Result   T        `json:"result"`
	Applied  bool     `json:"applied"`
	Warnings []string `json:"warnings,omitempty"`
}

func respond[T any](c echo.Context, code int, result T, applied bool, warnings []error) error {
	resp := mutationResponse[T]{Result: result, Applied: applied}
	for _, w := range warnings {
		log.FromContext(c.Request().Context()).WithError(w).Warn("Request applied with a warning")
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	if !applied && code == http.StatusCreated {
		code = http.StatusOK
	}
	return c.JSON(code, resp)
}

func parseWindow(c echo.Context) (entity.Window, error) {
	var w entity.Window
	for name, dst := range map[string]*time.Time{"from": &w.From, "to": &w.To} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entity.Window{}, badRequest(fmt.Sprintf("%s must be an RFC 3339 timestamp", name), err)
		}
		*dst = t
	}
	if !w.To.IsZero() && w.To.Before(w.From) {
		return entity.Window{}, badRequest("to must not be before from", errors.New("inverted window"))
	}
	return w, nil
}
