package entity

import (
	"fmt"
	"slices"
	"time"
)

type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "pending_payment"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusPartiallyPaid  BookingStatus = "partially_paid"
	StatusFullyPaid      BookingStatus = "fully_paid"
	StatusCheckedIn      BookingStatus = "checked_in"
	StatusInTransit      BookingStatus = "in_transit"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
	StatusRefunded       BookingStatus = "refunded"
)

func (s BookingStatus) String() string { return string(s) }

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusPartiallyPaid, StatusFullyPaid,
		StatusCheckedIn, StatusInTransit, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// Operational statuses track the trip itself rather than money.
func (s BookingStatus) Operational() bool {
	return s == StatusCheckedIn || s == StatusInTransit || s == StatusCompleted
}

// Precedence ranks the non-terminal, non-initial statuses from least to most
// advanced. The visible status of a booking is the highest-ranked signal it
// carries.
type Precedence []BookingStatus

// DefaultPrecedence is confirmed < partially_paid < fully_paid < checked_in
// < in_transit < completed.
var DefaultPrecedence = Precedence{
	StatusConfirmed,
	StatusPartiallyPaid,
	StatusFullyPaid,
	StatusCheckedIn,
	StatusInTransit,
	StatusCompleted,
}

// ParsePrecedence validates a configured ordering. The operational statuses
// must close the ordering in trip order, and partially_paid must precede
// fully_paid; only the placement of confirmed among the payment statuses is
// free.
func ParsePrecedence(names []string) (Precedence, error) {
	if len(names) != len(DefaultPrecedence) {
		return nil, fmt.Errorf("status precedence needs %d statuses, got %d", len(DefaultPrecedence), len(names))
	}
	p := make(Precedence, 0, len(names))
	for _, n := range names {
		s := BookingStatus(n)
		if !slices.Contains(DefaultPrecedence, s) {
			return nil, fmt.Errorf("status %q cannot be ranked", n)
		}
		if slices.Contains(p, s) {
			return nil, fmt.Errorf("status %q listed twice", n)
		}
		p = append(p, s)
	}
	if !slices.Equal(p[3:], Precedence{StatusCheckedIn, StatusInTransit, StatusCompleted}) {
		return nil, fmt.Errorf("operational statuses must come last in trip order")
	}
	if p.Rank(StatusPartiallyPaid) > p.Rank(StatusFullyPaid) {
		return nil, fmt.Errorf("partially_paid must precede fully_paid")
	}
	return p, nil
}

// Rank returns 0 for pending_payment and statuses outside the ordering.
func (p Precedence) Rank(s BookingStatus) int {
	return slices.Index(p, s) + 1
}

func (p Precedence) max(candidates ...BookingStatus) BookingStatus {
	best := StatusPendingPayment
	for _, c := range candidates {
		if p.Rank(c) > p.Rank(best) {
			best = c
		}
	}
	return best
}

// InstallmentStatus is what is stored; overdue is derived at read time.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

type Installment struct {
	DueDate time.Time         `json:"due_date"`
	Amount  Money             `json:"amount"`
	Status  InstallmentStatus `json:"status"`
	PaidAt  *time.Time        `json:"paid_at,omitempty"`
}

type PaymentRecord struct {
	Amount         Money     `json:"amount"`
	PaidAt         time.Time `json:"paid_at"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	// Installment is the 1-based schedule position, 0 for ad-hoc payments.
	Installment int `json:"installment,omitempty"`
}

type RefundSource string

const (
	RefundOnCancel  RefundSource = "cancellation"
	RefundOnRequest RefundSource = "refund"
	RefundOnDispute RefundSource = "dispute"
)

type RefundRecord struct {
	Amount     Money        `json:"amount"`
	RefundedAt time.Time    `json:"refunded_at"`
	Source     RefundSource `json:"source"`
	DisputeID  string       `json:"dispute_id,omitempty"`
}

type Booking struct {
	BookingID      string `json:"booking_id" db:"booking_id"`
	TravelerID     string `json:"traveler_id" db:"traveler_id"`
	CampaignID     string `json:"campaign_id" db:"campaign_id"`
	TripID         string `json:"trip_id" db:"trip_id"`
	PassengerCount int    `json:"passenger_count" db:"passenger_count"`

	UnitPrice Money `json:"unit_price" db:"unit_price"`
	Subtotal  Money `json:"subtotal" db:"subtotal"`
	// Discount includes refunds folded in after creation; the promotional
	// part is Discount - Refunded.
	Discount  Money `json:"discount" db:"discount"`
	Total     Money `json:"total" db:"total"`
	Paid      Money `json:"paid" db:"paid"`
	Remaining Money `json:"remaining" db:"remaining"`
	Refunded  Money `json:"refunded" db:"refunded"`

	Status           BookingStatus `json:"status" db:"status"`
	Confirmed        bool          `json:"confirmed" db:"confirmed"`
	Stage            BookingStatus `json:"stage,omitempty" db:"stage"`
	OverrideUsed     bool          `json:"override_used" db:"override_used"`
	CapacityReleased bool          `json:"capacity_released" db:"capacity_released"`
	CancelReason     string        `json:"cancel_reason,omitempty" db:"cancel_reason"`

	Schedule    []Installment   `json:"schedule,omitempty" db:"-"`
	Payments    []PaymentRecord `json:"payments,omitempty" db:"-"`
	Refunds     []RefundRecord  `json:"refunds,omitempty" db:"-"`
	AppliedKeys []string        `json:"-" db:"-"`

	Version   int64     `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that shares no slices with b.
func (b Booking) Clone() Booking {
	c := b
	c.Schedule = slices.Clone(b.Schedule)
	for i, in := range c.Schedule {
		if in.PaidAt != nil {
			at := *in.PaidAt
			c.Schedule[i].PaidAt = &at
		}
	}
	c.Payments = slices.Clone(b.Payments)
	c.Refunds = slices.Clone(b.Refunds)
	c.AppliedKeys = slices.Clone(b.AppliedKeys)
	return c
}

// HasApplied reports whether a mutation carrying key already landed.
func (b Booking) HasApplied(key string) bool {
	if key == "" {
		return false
	}
	if slices.Contains(b.AppliedKeys, key) {
		return true
	}
	return slices.ContainsFunc(b.Payments, func(p PaymentRecord) bool {
		return p.IdempotencyKey == key
	})
}

// CountsAgainstCapacity is true while the booking's seats are held.
func (b Booking) CountsAgainstCapacity() bool {
	return !b.CapacityReleased
}

// CheckMoney verifies the money invariants of a booking.
func (b Booking) CheckMoney() error {
	amounts := []struct {
		name string
		m    Money
	}{
		{"subtotal", b.Subtotal}, {"discount", b.Discount}, {"total", b.Total},
		{"paid", b.Paid}, {"remaining", b.Remaining}, {"refunded", b.Refunded},
	}
	for _, a := range amounts {
		if a.m.IsNegative() {
			return InvalidAmount("%s is negative: %s", a.name, a.m)
		}
		if !a.m.InRange() {
			return InvalidAmount("%s is out of range: %s", a.name, a.m)
		}
	}
	if !b.Subtotal.Sub(b.Discount).Equal(b.Total) {
		return InvalidAmount("total %s does not equal subtotal %s minus discount %s", b.Total, b.Subtotal, b.Discount)
	}
	if !b.Paid.Add(b.Remaining).Equal(b.Total) {
		return InvalidAmount("paid %s plus remaining %s does not equal total %s", b.Paid, b.Remaining, b.Total)
	}
	return nil
}

type BookingFilter struct {
	CampaignID string
	TripID     string
	TravelerID string
	Status     BookingStatus
}

func (f BookingFilter) Matches(b Booking) bool {
	if f.CampaignID != "" && b.CampaignID != f.CampaignID {
		return false
	}
	if f.TripID != "" && b.TripID != f.TripID {
		return false
	}
	if f.TravelerID != "" && b.TravelerID != f.TravelerID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}
