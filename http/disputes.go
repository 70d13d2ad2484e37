package http

import (
	"net/http"
	"settlement/command"
	"settlement/entity"
	"settlement/ledger"

	"github.com/labstack/echo/v4"
)

type openDisputeRequest struct {
	DisputeID    string             `json:"dispute_id"`
	BookingID    string             `json:"booking_id"`
	Type         entity.DisputeType `json:"type"`
	RaisedByRole entity.Role        `json:"raised_by_role"`
	Description  string             `json:"description"`
	Disputed     entity.Money       `json:"disputed_amount"`
}

func (h handler) OpenDispute(c echo.Context) error {
	var request openDisputeRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewOpenDispute(m.IdempotencyKey, m.Actor,
			request.DisputeID, request.BookingID, request.Type, request.RaisedByRole,
			request.Description, request.Disputed))
	}

	res, err := h.ledger.OpenDispute(c.Request().Context(), ledger.OpenDisputeParams{
		DisputeID:    request.DisputeID,
		BookingID:    request.BookingID,
		Type:         request.Type,
		RaisedByRole: request.RaisedByRole,
		Description:  request.Description,
		Disputed:     request.Disputed,
	}, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusCreated, res.Dispute, res.Applied, res.Warnings)
}

func (h handler) GetDispute(c echo.Context) error {
	d, err := h.ledger.GetDispute(c.Request().Context(), c.Param("dispute_id"))
	if err != nil {
		return ledgerError(err)
	}

	return c.JSON(http.StatusOK, d)
}

type transitionDisputeRequest struct {
	Target     entity.DisputeStatus `json:"target"`
	Resolution string               `json:"resolution"`
	Refund     entity.Money         `json:"refund"`
}

type transitionResponse struct {
	Dispute entity.Dispute  `json:"dispute"`
	Booking *entity.Booking `json:"booking,omitempty"`
}

func (h handler) TransitionDispute(c echo.Context) error {
	var request transitionDisputeRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	disputeID := c.Param("dispute_id")
	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewTransitionDispute(m.IdempotencyKey, m.Actor,
			disputeID, request.Target, request.Resolution, request.Refund))
	}

	res, err := h.ledger.TransitionDispute(c.Request().Context(), disputeID, entity.DisputeTransition{
		Target:     request.Target,
		Resolution: request.Resolution,
		Refund:     request.Refund,
	}, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusOK, transitionResponse{Dispute: res.Dispute, Booking: res.Booking}, res.Applied, res.Warnings)
}

func (h handler) DisputeAuditTrail(c echo.Context) error {
	return h.auditTrail(c, entity.EntityDispute, c.Param("dispute_id"))
}
