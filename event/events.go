package event

import (
	"settlement/entity"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
	Actor          string    `json:"actor"`
}

func newHeader(idempotencyKey, actor string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
		Actor:          actor,
	}
}

type TripCreated struct {
	Header        header    `json:"header"`
	TripID        string    `json:"trip_id"`
	CampaignID    string    `json:"campaign_id"`
	TotalCapacity int       `json:"total_capacity"`
	DepartureTime time.Time `json:"departure_time"`
}

func NewTripCreated(idempotencyKey, actor string, trip entity.Trip) TripCreated {
	return TripCreated{
		Header:        newHeader(idempotencyKey, actor),
		TripID:        trip.TripID,
		CampaignID:    trip.CampaignID,
		TotalCapacity: trip.TotalCapacity,
		DepartureTime: trip.DepartureTime,
	}
}

type BookingCreated struct {
	Header         header               `json:"header"`
	BookingID      string               `json:"booking_id"`
	TravelerID     string               `json:"traveler_id"`
	CampaignID     string               `json:"campaign_id"`
	TripID         string               `json:"trip_id"`
	PassengerCount int                  `json:"passenger_count"`
	Total          entity.Money         `json:"total"`
	Status         entity.BookingStatus `json:"status"`
}

func NewBookingCreated(idempotencyKey, actor string, b entity.Booking) BookingCreated {
	return BookingCreated{
		Header:         newHeader(idempotencyKey, actor),
		BookingID:      b.BookingID,
		TravelerID:     b.TravelerID,
		CampaignID:     b.CampaignID,
		TripID:         b.TripID,
		PassengerCount: b.PassengerCount,
		Total:          b.Total,
		Status:         b.Status,
	}
}

// BookingStatusChanged is published for every mutation of an existing
// booking. OldStatus and NewStatus may be equal, e.g. for a second partial
// payment.
type BookingStatusChanged struct {
	Header     header               `json:"header"`
	BookingID  string               `json:"booking_id"`
	TravelerID string               `json:"traveler_id"`
	CampaignID string               `json:"campaign_id"`
	TripID     string               `json:"trip_id"`
	Action     entity.Action        `json:"action"`
	OldStatus  entity.BookingStatus `json:"old_status"`
	NewStatus  entity.BookingStatus `json:"new_status"`
	Total      entity.Money         `json:"total"`
	Paid       entity.Money         `json:"paid"`
	Remaining  entity.Money         `json:"remaining"`
}

func NewBookingStatusChanged(idempotencyKey, actor string, action entity.Action, before, after entity.Booking) BookingStatusChanged {
	return BookingStatusChanged{
		Header:     newHeader(idempotencyKey, actor),
		BookingID:  after.BookingID,
		TravelerID: after.TravelerID,
		CampaignID: after.CampaignID,
		TripID:     after.TripID,
		Action:     action,
		OldStatus:  before.Status,
		NewStatus:  after.Status,
		Total:      after.Total,
		Paid:       after.Paid,
		Remaining:  after.Remaining,
	}
}

type DisputeOpened struct {
	Header     header             `json:"header"`
	DisputeID  string             `json:"dispute_id"`
	BookingID  string             `json:"booking_id"`
	CampaignID string             `json:"campaign_id"`
	Type       entity.DisputeType `json:"type"`
	RaisedBy   string             `json:"raised_by"`
	Disputed   entity.Money       `json:"disputed_amount"`
}

func NewDisputeOpened(idempotencyKey, actor string, d entity.Dispute) DisputeOpened {
	return DisputeOpened{
		Header:     newHeader(idempotencyKey, actor),
		DisputeID:  d.DisputeID,
		BookingID:  d.BookingID,
		CampaignID: d.CampaignID,
		Type:       d.Type,
		RaisedBy:   d.RaisedBy,
		Disputed:   d.Disputed,
	}
}

type DisputeStatusChanged struct {
	Header     header               `json:"header"`
	DisputeID  string               `json:"dispute_id"`
	BookingID  string               `json:"booking_id"`
	CampaignID string               `json:"campaign_id"`
	RaisedBy   string               `json:"raised_by"`
	OldStatus  entity.DisputeStatus `json:"old_status"`
	NewStatus  entity.DisputeStatus `json:"new_status"`
	Refunded   entity.Money         `json:"refunded_amount"`
}

func NewDisputeStatusChanged(idempotencyKey, actor string, before, after entity.Dispute) DisputeStatusChanged {
	return DisputeStatusChanged{
		Header:     newHeader(idempotencyKey, actor),
		DisputeID:  after.DisputeID,
		BookingID:  after.BookingID,
		CampaignID: after.CampaignID,
		RaisedBy:   after.RaisedBy,
		OldStatus:  before.Status,
		NewStatus:  after.Status,
		Refunded:   after.Refunded,
	}
}
