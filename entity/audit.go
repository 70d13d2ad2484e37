package entity

import (
	"fmt"
	"strconv"
	"time"
)

type Action string

const (
	ActionBookingCreated          Action = "booking.created"
	ActionBookingConfirmed        Action = "booking.confirmed"
	ActionPaymentRecorded         Action = "booking.payment_recorded"
	ActionBookingAdvanced         Action = "booking.advanced"
	ActionBookingAdvancedOverride Action = "booking.advanced_override"
	ActionBookingCancelled        Action = "booking.cancelled"
	ActionBookingRefunded         Action = "booking.refunded"
	ActionScheduleSet             Action = "booking.schedule_set"
	ActionInstallmentPaid         Action = "booking.installment_paid"
	ActionRefundAdjusted          Action = "booking.refund_adjusted"
	ActionDisputeOpened           Action = "dispute.opened"
	ActionDisputeTransitioned     Action = "dispute.transitioned"
	ActionTripCreated             Action = "trip.created"
)

type EntityType string

const (
	EntityBooking EntityType = "booking"
	EntityDispute EntityType = "dispute"
	EntityTrip    EntityType = "trip"
)

// FieldChange holds one field's value before and after a mutation. Empty
// Before means the field did not exist yet.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type AuditEntry struct {
	EntryID    string        `json:"entry_id" db:"entry_id"`
	Actor      string        `json:"actor" db:"actor"`
	Action     Action        `json:"action" db:"action"`
	EntityType EntityType    `json:"entity_type" db:"entity_type"`
	EntityID   string        `json:"entity_id" db:"entity_id"`
	Changes    []FieldChange `json:"changes" db:"-"`
	RecordedAt time.Time     `json:"recorded_at" db:"recorded_at"`
}

type diff []FieldChange

func (d *diff) add(field string, before, after any) {
	b, a := fmt.Sprint(before), fmt.Sprint(after)
	if b != a {
		*d = append(*d, FieldChange{Field: field, Before: b, After: a})
	}
}

// DiffBooking lists the audited fields that differ between two versions.
func DiffBooking(before, after Booking) []FieldChange {
	var d diff
	d.add("status", before.Status, after.Status)
	d.add("confirmed", before.Confirmed, after.Confirmed)
	d.add("stage", before.Stage, after.Stage)
	d.add("subtotal", before.Subtotal, after.Subtotal)
	d.add("discount", before.Discount, after.Discount)
	d.add("total", before.Total, after.Total)
	d.add("paid", before.Paid, after.Paid)
	d.add("remaining", before.Remaining, after.Remaining)
	d.add("refunded", before.Refunded, after.Refunded)
	d.add("capacity_released", before.CapacityReleased, after.CapacityReleased)
	d.add("cancel_reason", before.CancelReason, after.CancelReason)
	d.add("installments", len(before.Schedule), len(after.Schedule))
	for i := range after.Schedule {
		var prev Installment
		if i < len(before.Schedule) {
			prev = before.Schedule[i]
		}
		n := strconv.Itoa(i + 1)
		d.add("installment."+n+".amount", moneyField(prev.Amount, i < len(before.Schedule)), after.Schedule[i].Amount)
		d.add("installment."+n+".status", prev.Status, after.Schedule[i].Status)
	}
	return d
}

// CreatedBooking lists every audited field of a new booking.
func CreatedBooking(b Booking) []FieldChange {
	var d diff
	d.add("status", "", b.Status)
	d.add("passenger_count", "", b.PassengerCount)
	d.add("subtotal", "", b.Subtotal)
	d.add("discount", "", b.Discount)
	d.add("total", "", b.Total)
	d.add("paid", "", b.Paid)
	d.add("remaining", "", b.Remaining)
	return d
}

func DiffDispute(before, after Dispute) []FieldChange {
	var d diff
	d.add("status", before.Status, after.Status)
	d.add("disputed_amount", moneyField(before.Disputed, before.DisputeID != ""), after.Disputed)
	d.add("refunded_amount", moneyField(before.Refunded, before.DisputeID != ""), after.Refunded)
	d.add("resolution", before.Resolution, after.Resolution)
	return d
}

func CreatedTrip(t Trip) []FieldChange {
	var d diff
	d.add("total_capacity", "", t.TotalCapacity)
	d.add("booked", "", t.Booked)
	return d
}

func moneyField(m Money, known bool) string {
	if !known {
		return ""
	}
	return m.String()
}
