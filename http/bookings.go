package http

import (
	"fmt"
	"net/http"
	"settlement/command"
	"settlement/entity"
	"settlement/ledger"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

type createBookingRequest struct {
	BookingID      string       `json:"booking_id"`
	TravelerID     string       `json:"traveler_id"`
	TripID         string       `json:"trip_id"`
	PassengerCount int          `json:"passenger_count"`
	UnitPrice      entity.Money `json:"unit_price"`
	Discount       entity.Money `json:"discount"`
}

func (h handler) CreateBooking(c echo.Context) error {
	var request createBookingRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewCreateBooking(m.IdempotencyKey, m.Actor,
			request.BookingID, request.TravelerID, request.TripID, request.PassengerCount,
			request.UnitPrice, request.Discount))
	}

	res, err := h.ledger.CreateBooking(c.Request().Context(), ledger.CreateBookingParams{
		BookingID:      request.BookingID,
		TravelerID:     request.TravelerID,
		TripID:         request.TripID,
		PassengerCount: request.PassengerCount,
		UnitPrice:      request.UnitPrice,
		Discount:       request.Discount,
	}, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusCreated, res.Booking, res.Applied, res.Warnings)
}

func (h handler) GetBooking(c echo.Context) error {
	b, err := h.ledger.GetBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return ledgerError(err)
	}

	return c.JSON(http.StatusOK, b)
}

func (h handler) ListBookings(c echo.Context) error {
	filter := entity.BookingFilter{
		CampaignID: c.QueryParam("campaign_id"),
		TripID:     c.QueryParam("trip_id"),
		TravelerID: c.QueryParam("traveler_id"),
		Status:     entity.BookingStatus(c.QueryParam("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return badRequest("unknown status", fmt.Errorf("unknown booking status %q", filter.Status))
	}

	bookings, err := h.ledger.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return ledgerError(err)
	}

	if bookings == nil {
		bookings = []entity.Booking{}
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h handler) ConfirmBooking(c echo.Context) error {
	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewConfirmBooking(m.IdempotencyKey, m.Actor, bookingID))
	}

	res, err := h.ledger.ConfirmBooking(c.Request().Context(), bookingID, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

type amountRequest struct {
	Amount entity.Money `json:"amount"`
}

func (h handler) RecordPayment(c echo.Context) error {
	var request amountRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewRecordPayment(m.IdempotencyKey, m.Actor, bookingID, request.Amount))
	}

	res, err := h.ledger.RecordPayment(c.Request().Context(), bookingID, request.Amount, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

type advanceRequest struct {
	Target   entity.BookingStatus `json:"target"`
	Override bool                 `json:"override"`
}

func (h handler) AdvanceBooking(c echo.Context) error {
	var request advanceRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewAdvanceBooking(m.IdempotencyKey, m.Actor, bookingID, request.Target, request.Override))
	}

	res, err := h.ledger.AdvanceBooking(c.Request().Context(), bookingID, request.Target, request.Override, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

type cancelRequest struct {
	Reason string        `json:"reason"`
	Refund *entity.Money `json:"refund"`
}

func (h handler) CancelBooking(c echo.Context) error {
	var request cancelRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewCancelBooking(m.IdempotencyKey, m.Actor, bookingID, request.Reason, request.Refund))
	}

	res, err := h.ledger.CancelBooking(c.Request().Context(), bookingID, request.Reason, request.Refund, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

func (h handler) RefundBooking(c echo.Context) error {
	var request amountRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewRefundBooking(m.IdempotencyKey, m.Actor, bookingID, request.Amount))
	}

	res, err := h.ledger.RefundBooking(c.Request().Context(), bookingID, request.Amount, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

type scheduleRequest struct {
	Installments []entity.InstallmentPlan `json:"installments"`
}

func (h handler) ScheduleInstallments(c echo.Context) error {
	var request scheduleRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewScheduleInstallments(m.IdempotencyKey, m.Actor, bookingID, request.Installments))
	}

	res, err := h.ledger.ScheduleInstallments(c.Request().Context(), bookingID, request.Installments, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

// GetSchedule shows pending installments past their due date as overdue.
func (h handler) GetSchedule(c echo.Context) error {
	b, err := h.ledger.GetBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return ledgerError(err)
	}

	view := entity.ScheduleView(b, time.Now().UTC())
	if view == nil {
		view = []entity.Installment{}
	}
	return c.JSON(http.StatusOK, view)
}

type installmentPaidRequest struct {
	PaidAt time.Time `json:"paid_at"`
}

func (h handler) MarkInstallmentPaid(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return badRequest("installment index must be a number", err)
	}

	var request installmentPaidRequest
	if c.Request().ContentLength > 0 {
		if err := bind(c, &request); err != nil {
			return err
		}
	}

	bookingID := c.Param("booking_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewMarkInstallmentPaid(m.IdempotencyKey, m.Actor, bookingID, index, request.PaidAt))
	}

	res, err := h.ledger.MarkInstallmentPaid(c.Request().Context(), bookingID, index, request.PaidAt, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, res.Booking, res.Applied, res.Warnings)
}

func (h handler) ListBookingDisputes(c echo.Context) error {
	disputes, err := h.ledger.ListDisputes(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return ledgerError(err)
	}

	if disputes == nil {
		disputes = []entity.Dispute{}
	}
	return c.JSON(http.StatusOK, disputes)
}

func (h handler) BookingAuditTrail(c echo.Context) error {
	return h.auditTrail(c, entity.EntityBooking, c.Param("booking_id"))
}

func (h handler) auditTrail(c echo.Context, entityType entity.EntityType, entityID string) error {
	entries, err := h.ledger.AuditTrail(c.Request().Context(), entityType, entityID)
	if err != nil {
		return ledgerError(err)
	}

	if entries == nil {
		entries = []entity.AuditEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}
