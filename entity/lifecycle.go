package entity

import (
	"time"
)

// Lifecycle applies state-machine rules to bookings. All methods work on a
// copy and return the mutated booking, so a failed call never leaves a
// partially applied change behind.
type Lifecycle struct {
	precedence Precedence
}

func NewLifecycle(precedence Precedence) Lifecycle {
	if len(precedence) == 0 {
		precedence = DefaultPrecedence
	}
	return Lifecycle{precedence: precedence}
}

func (l Lifecycle) Precedence() Precedence {
	return l.precedence
}

type NewBookingParams struct {
	BookingID      string
	TravelerID     string
	CampaignID     string
	TripID         string
	PassengerCount int
	UnitPrice      Money
	Discount       Money
	CreatedAt      time.Time
}

// NewBooking validates the money inputs and returns a pending_payment
// booking, or a fully_paid one when the discount covers the subtotal.
// Seat reservation happens in the store, atomically with the insert.
func (l Lifecycle) NewBooking(p NewBookingParams) (Booking, error) {
	if p.PassengerCount <= 0 {
		return Booking{}, InvalidAmount("passenger count must be positive, got %d", p.PassengerCount)
	}
	if p.UnitPrice.IsNegative() {
		return Booking{}, InvalidAmount("unit price %s is negative", p.UnitPrice)
	}
	if p.Discount.IsNegative() {
		return Booking{}, InvalidAmount("discount %s is negative", p.Discount)
	}
	subtotal := p.UnitPrice.MulInt(p.PassengerCount)
	if p.Discount.GreaterThan(subtotal) {
		return Booking{}, InvalidAmount("discount %s exceeds subtotal %s", p.Discount, subtotal)
	}
	total := subtotal.Sub(p.Discount)

	b := Booking{
		BookingID:      p.BookingID,
		TravelerID:     p.TravelerID,
		CampaignID:     p.CampaignID,
		TripID:         p.TripID,
		PassengerCount: p.PassengerCount,
		UnitPrice:      p.UnitPrice,
		Subtotal:       subtotal,
		Discount:       p.Discount,
		Total:          total,
		Paid:           Zero,
		Remaining:      total,
		Refunded:       Zero,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.CreatedAt,
	}
	b.Status = l.status(b)
	return b, b.CheckMoney()
}

func (l Lifecycle) status(b Booking) BookingStatus {
	if b.Status.Terminal() {
		return b.Status
	}
	var signals []BookingStatus
	if b.Confirmed {
		signals = append(signals, StatusConfirmed)
	}
	switch {
	case b.settled():
		signals = append(signals, StatusFullyPaid)
	case b.Paid.IsPositive():
		signals = append(signals, StatusPartiallyPaid)
	}
	if b.Stage != "" {
		signals = append(signals, b.Stage)
	}
	return l.precedence.max(signals...)
}

func (l Lifecycle) settle(b Booking, at time.Time) (Booking, error) {
	b.Status = l.status(b)
	b.UpdatedAt = at
	if err := b.CheckMoney(); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// RecordPayment adds an ad-hoc payment. A payment whose key was already
// applied returns the booking unchanged with applied == false.
func (l Lifecycle) RecordPayment(b Booking, amount Money, key string, at time.Time) (updated Booking, applied bool, err error) {
	if b.HasApplied(key) {
		return b, false, nil
	}
	b = b.Clone()
	b, err = l.recordPayment(b, amount, key, 0, at)
	if err != nil {
		return Booking{}, false, err
	}
	return b, true, nil
}

func (l Lifecycle) recordPayment(b Booking, amount Money, key string, installment int, at time.Time) (Booking, error) {
	if b.Status.Terminal() {
		return Booking{}, IllegalTransition(b.Status, StatusPartiallyPaid)
	}
	if !amount.IsPositive() {
		return Booking{}, InvalidAmount("payment %s must be positive", amount)
	}
	if amount.GreaterThan(b.Remaining) {
		return Booking{}, InvalidAmount("payment %s exceeds remaining %s", amount, b.Remaining)
	}
	b.Paid = b.Paid.Add(amount)
	b.Remaining = b.Remaining.Sub(amount)
	b.Payments = append(b.Payments, PaymentRecord{
		Amount:         amount,
		PaidAt:         at,
		IdempotencyKey: key,
		Installment:    installment,
	})
	return l.settle(b, at)
}

// Confirm sets the manual confirmation signal.
func (l Lifecycle) Confirm(b Booking, key string, at time.Time) (Booking, bool, error) {
	if b.HasApplied(key) {
		return b, false, nil
	}
	if b.Status.Terminal() || b.Confirmed || b.Stage != "" {
		return Booking{}, false, IllegalTransition(b.Status, StatusConfirmed)
	}
	b = b.Clone()
	b.Confirmed = true
	b.markApplied(key)
	b, err := l.settle(b, at)
	return b, err == nil, err
}

// Advance moves a booking to an operational status. Without override the
// booking must be fully paid or confirmed.
func (l Lifecycle) Advance(b Booking, target BookingStatus, override bool, key string, at time.Time) (Booking, bool, error) {
	if b.HasApplied(key) {
		return b, false, nil
	}
	if b.Status.Terminal() || b.Stage == StatusCompleted {
		return Booking{}, false, IllegalTransition(b.Status, target)
	}
	if !target.Operational() {
		return Booking{}, false, IllegalTransition(b.Status, target)
	}
	if l.precedence.Rank(target) <= l.precedence.Rank(b.Stage) {
		return Booking{}, false, IllegalTransition(b.Status, target)
	}
	paidUp := b.PaidUp()
	if !paidUp && !b.Confirmed && !override {
		return Booking{}, false, newError(KindPaymentIncomplete,
			"booking %s is %s; %s requires full payment or confirmation", b.BookingID, b.Status, target)
	}
	b = b.Clone()
	b.Stage = target
	if override && !paidUp && !b.Confirmed {
		b.OverrideUsed = true
	}
	b.markApplied(key)
	b, err := l.settle(b, at)
	return b, err == nil, err
}

// Cancel moves the booking to cancelled. A booking with money on it needs a
// refund of exactly the paid amount. Cancelling a terminal booking is a no-op.
func (l Lifecycle) Cancel(b Booking, reason string, refund *Money, at time.Time) (Booking, bool, error) {
	if b.Status.Terminal() {
		return b, false, nil
	}
	if b.Stage == StatusCompleted {
		return Booking{}, false, IllegalTransition(b.Status, StatusCancelled)
	}
	b = b.Clone()
	if b.Paid.IsPositive() {
		if refund == nil {
			return Booking{}, false, newError(KindRefundRequired,
				"booking %s has %s paid; cancellation needs a refund", b.BookingID, b.Paid)
		}
		if !refund.Equal(b.Paid) {
			return Booking{}, false, InvalidAmount("refund %s must equal paid %s", *refund, b.Paid)
		}
		b = applyRefund(b, *refund, RefundRecord{Amount: *refund, RefundedAt: at, Source: RefundOnCancel})
	} else if refund != nil && !refund.IsZero() {
		return Booking{}, false, InvalidAmount("refund %s exceeds paid %s", *refund, b.Paid)
	}
	b.Status = StatusCancelled
	b.CancelReason = reason
	b.UpdatedAt = at
	if err := b.CheckMoney(); err != nil {
		return Booking{}, false, err
	}
	return b, true, nil
}

// Refund returns money to the traveler and ends the booking as refunded.
func (l Lifecycle) Refund(b Booking, amount Money, at time.Time) (Booking, bool, error) {
	if b.Status.Terminal() {
		return b, false, nil
	}
	if b.Stage == StatusCompleted {
		return Booking{}, false, IllegalTransition(b.Status, StatusRefunded)
	}
	if !amount.IsPositive() || amount.GreaterThan(b.Paid) {
		return Booking{}, false, InvalidAmount("refund %s must be positive and at most paid %s", amount, b.Paid)
	}
	b = applyRefund(b.Clone(), amount, RefundRecord{Amount: amount, RefundedAt: at, Source: RefundOnRequest})
	b.Status = StatusRefunded
	b.UpdatedAt = at
	if err := b.CheckMoney(); err != nil {
		return Booking{}, false, err
	}
	return b, true, nil
}

// ApplyDisputeRefund reduces total and paid by a dispute's refund without
// ending the booking.
func (l Lifecycle) ApplyDisputeRefund(b Booking, d Dispute, at time.Time) (Booking, error) {
	if !d.Refunded.IsPositive() {
		return b, nil
	}
	if d.Refunded.GreaterThan(b.Paid) {
		return Booking{}, InvalidAmount("dispute refund %s exceeds paid %s", d.Refunded, b.Paid)
	}
	b = applyRefund(b.Clone(), d.Refunded, RefundRecord{
		Amount:     d.Refunded,
		RefundedAt: at,
		Source:     RefundOnDispute,
		DisputeID:  d.DisputeID,
	})
	return l.settle(b, at)
}

// ReleaseSeats reports whether the store must hand the passenger count back
// to the trip, and flips the guard so it happens once.
func ReleaseSeats(b *Booking) bool {
	if !b.Status.Terminal() || b.CapacityReleased {
		return false
	}
	b.CapacityReleased = true
	return true
}

func applyRefund(b Booking, amount Money, rec RefundRecord) Booking {
	b.Total = b.Total.Sub(amount)
	b.Paid = b.Paid.Sub(amount)
	b.Discount = b.Discount.Add(amount)
	b.Refunded = b.Refunded.Add(amount)
	b.Refunds = append(b.Refunds, rec)
	b.Schedule = rebalance(b.Schedule, amount)
	return b
}

// settled is true once nothing is left to pay. A booking discounted or
// refunded down to a zero total is settled.
func (b Booking) settled() bool {
	return b.Remaining.IsZero()
}

// PaidUp reports whether operational progress needs no further money.
func (b Booking) PaidUp() bool {
	return b.settled()
}

func (b *Booking) markApplied(key string) {
	if key != "" {
		b.AppliedKeys = append(b.AppliedKeys, key)
	}
}
