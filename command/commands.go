package command

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

type CreateTrip struct {
	Header        header    `json:"header"`
	TripID        string    `json:"trip_id"`
	CampaignID    string    `json:"campaign_id"`
	TotalCapacity int       `json:"total_capacity"`
	DepartureTime time.Time `json:"departure_time"`
}

func NewCreateTrip(idempotencyKey, actor, tripID, campaignID string, capacity int, departure time.Time) CreateTrip {
	return CreateTrip{
		Header:        newHeader(idempotencyKey, actor),
		TripID:        tripID,
		CampaignID:    campaignID,
		TotalCapacity: capacity,
		DepartureTime: departure,
	}
}

type CreateBooking struct {
	Header         header       `json:"header"`
	BookingID      string       `json:"booking_id"`
	TravelerID     string       `json:"traveler_id"`
	TripID         string       `json:"trip_id"`
	PassengerCount int          `json:"passenger_count"`
	UnitPrice      entity.Money `json:"unit_price"`
	Discount       entity.Money `json:"discount"`
}

func NewCreateBooking(idempotencyKey, actor, bookingID, travelerID, tripID string, passengers int, unitPrice, discount entity.Money) CreateBooking {
	return CreateBooking{
		Header:         newHeader(idempotencyKey, actor),
		BookingID:      bookingID,
		TravelerID:     travelerID,
		TripID:         tripID,
		PassengerCount: passengers,
		UnitPrice:      unitPrice,
		Discount:       discount,
	}
}

type ConfirmBooking struct {
	Header    header `json:"header"`
	BookingID string `json:"booking_id"`
}

func NewConfirmBooking(idempotencyKey, actor, bookingID string) ConfirmBooking {
	return ConfirmBooking{Header: newHeader(idempotencyKey, actor), BookingID: bookingID}
}

type RecordPayment struct {
	Header    header       `json:"header"`
	BookingID string       `json:"booking_id"`
	Amount    entity.Money `json:"amount"`
}

func NewRecordPayment(idempotencyKey, actor, bookingID string, amount entity.Money) RecordPayment {
	return RecordPayment{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Amount: amount}
}

type AdvanceBooking struct {
	Header    header               `json:"header"`
	BookingID string               `json:"booking_id"`
	Target    entity.BookingStatus `json:"target"`
	Override  bool                 `json:"override"`
}

func NewAdvanceBooking(idempotencyKey, actor, bookingID string, target entity.BookingStatus, override bool) AdvanceBooking {
	return AdvanceBooking{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Target: target, Override: override}
}

type CancelBooking struct {
	Header    header        `json:"header"`
	BookingID string        `json:"booking_id"`
	Reason    string        `json:"reason"`
	Refund    *entity.Money `json:"refund,omitempty"`
}

func NewCancelBooking(idempotencyKey, actor, bookingID, reason string, refund *entity.Money) CancelBooking {
	return CancelBooking{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Reason: reason, Refund: refund}
}

type RefundBooking struct {
	Header    header       `json:"header"`
	BookingID string       `json:"booking_id"`
	Amount    entity.Money `json:"amount"`
}

func NewRefundBooking(idempotencyKey, actor, bookingID string, amount entity.Money) RefundBooking {
	return RefundBooking{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Amount: amount}
}

type ScheduleInstallments struct {
	Header       header                   `json:"header"`
	BookingID    string                   `json:"booking_id"`
	Installments []entity.InstallmentPlan `json:"installments"`
}

func NewScheduleInstallments(idempotencyKey, actor, bookingID string, plan []entity.InstallmentPlan) ScheduleInstallments {
	return ScheduleInstallments{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Installments: plan}
}

type MarkInstallmentPaid struct {
	Header    header    `json:"header"`
	BookingID string    `json:"booking_id"`
	Index     int       `json:"index"`
	PaidAt    time.Time `json:"paid_at"`
}

func NewMarkInstallmentPaid(idempotencyKey, actor, bookingID string, index int, paidAt time.Time) MarkInstallmentPaid {
	return MarkInstallmentPaid{Header: newHeader(idempotencyKey, actor), BookingID: bookingID, Index: index, PaidAt: paidAt}
}

type OpenDispute struct {
	Header       header             `json:"header"`
	DisputeID    string             `json:"dispute_id"`
	BookingID    string             `json:"booking_id"`
	Type         entity.DisputeType `json:"type"`
	RaisedByRole entity.Role        `json:"raised_by_role"`
	Description  string             `json:"description"`
	Disputed     entity.Money       `json:"disputed_amount"`
}

func NewOpenDispute(idempotencyKey, actor, disputeID, bookingID string, typ entity.DisputeType, role entity.Role, description string, disputed entity.Money) OpenDispute {
	return OpenDispute{
		Header:       newHeader(idempotencyKey, actor),
		DisputeID:    disputeID,
		BookingID:    bookingID,
		Type:         typ,
		RaisedByRole: role,
		Description:  description,
		Disputed:     disputed,
	}
}

type TransitionDispute struct {
	Header     header               `json:"header"`
	DisputeID  string               `json:"dispute_id"`
	Target     entity.DisputeStatus `json:"target"`
	Resolution string               `json:"resolution"`
	Refund     entity.Money         `json:"refund"`
}

func NewTransitionDispute(idempotencyKey, actor, disputeID string, target entity.DisputeStatus, resolution string, refund entity.Money) TransitionDispute {
	return TransitionDispute{
		Header:     newHeader(idempotencyKey, actor),
		DisputeID:  disputeID,
		Target:     target,
		Resolution: resolution,
		Refund:     refund,
	}
}
