package http

import (
	"net/http"
	"settlement/command"
	"settlement/ledger"
	"time"

	"github.com/labstack/echo/v4"
)

type createTripRequest struct {
	TripID        string    `json:"trip_id"`
	CampaignID    string    `json:"campaign_id"`
	TotalCapacity int       `json:"total_capacity"`
	DepartureTime time.Time `json:"departure_time"`
}

func (h handler) CreateTrip(c echo.Context) error {
	var request createTripRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	m := meta(c)
	if wantsAsync(c) {
		return h.sendCommand(c, command.NewCreateTrip(m.IdempotencyKey, m.Actor,
			request.TripID, request.CampaignID, request.TotalCapacity, request.DepartureTime))
	}

	res, err := h.ledger.CreateTrip(c.Request().Context(), ledger.CreateTripParams{
		TripID:        request.TripID,
		CampaignID:    request.CampaignID,
		TotalCapacity: request.TotalCapacity,
		DepartureTime: request.DepartureTime,
	}, m)
	if err != nil {
		return ledgerError(err)
	}

	return respond(c, http.StatusCreated, res.Trip, res.Applied, res.Warnings)
}

type tripResponse struct {
	TripID         string    `json:"trip_id"`
	CampaignID     string    `json:"campaign_id"`
	TotalCapacity  int       `json:"total_capacity"`
	Booked         int       `json:"booked"`
	RemainingSeats int       `json:"remaining_seats"`
	DepartureTime  time.Time `json:"departure_time"`
}

func (h handler) GetTrip(c echo.Context) error {
	trip, err := h.ledger.GetTrip(c.Request().Context(), c.Param("trip_id"))
	if err != nil {
		return ledgerError(err)
	}

	return c.JSON(http.StatusOK, tripResponse{
		TripID:         trip.TripID,
		CampaignID:     trip.CampaignID,
		TotalCapacity:  trip.TotalCapacity,
		Booked:         trip.Booked,
		RemainingSeats: trip.Remaining(),
		DepartureTime:  trip.DepartureTime,
	})
}
