package entity

import (
	"slices"
	"strings"
	"time"
)

type DisputeStatus string

const (
	DisputeOpen        DisputeStatus = "open"
	DisputeUnderReview DisputeStatus = "under_review"
	DisputeResolved    DisputeStatus = "resolved"
	DisputeEscalated   DisputeStatus = "escalated"
	DisputeClosed      DisputeStatus = "closed"
)

func (s DisputeStatus) String() string { return string(s) }

func (s DisputeStatus) Terminal() bool {
	return s == DisputeResolved || s == DisputeClosed
}

var disputeEdges = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:        {DisputeUnderReview},
	DisputeUnderReview: {DisputeResolved, DisputeEscalated, DisputeClosed},
	DisputeEscalated:   {DisputeResolved, DisputeClosed},
}

func (s DisputeStatus) CanMoveTo(target DisputeStatus) bool {
	return slices.Contains(disputeEdges[s], target)
}

type DisputeType string

const (
	DisputeBilling        DisputeType = "billing"
	DisputeServiceQuality DisputeType = "service_quality"
	DisputeCancellation   DisputeType = "cancellation"
	DisputeNoShow         DisputeType = "no_show"
	DisputeOther          DisputeType = "other"
)

func (t DisputeType) Valid() bool {
	switch t {
	case DisputeBilling, DisputeServiceQuality, DisputeCancellation, DisputeNoShow, DisputeOther:
		return true
	}
	return false
}

type Role string

const (
	RoleTraveler      Role = "traveler"
	RoleCampaignOwner Role = "campaign_owner"
)

type Dispute struct {
	DisputeID    string        `json:"dispute_id" db:"dispute_id"`
	BookingID    string        `json:"booking_id" db:"booking_id"`
	TripID       string        `json:"trip_id" db:"trip_id"`
	CampaignID   string        `json:"campaign_id" db:"campaign_id"`
	Type         DisputeType   `json:"type" db:"type"`
	RaisedBy     string        `json:"raised_by" db:"raised_by"`
	RaisedByRole Role          `json:"raised_by_role" db:"raised_by_role"`
	Description  string        `json:"description" db:"description"`
	Disputed     Money         `json:"disputed_amount" db:"disputed_amount"`
	Refunded     Money         `json:"refunded_amount" db:"refunded_amount"`
	Status       DisputeStatus `json:"status" db:"status"`
	Resolution   string        `json:"resolution,omitempty" db:"resolution"`
	AppliedKeys  []string      `json:"-" db:"-"`
	Version      int64         `json:"version" db:"version"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

func (d Dispute) HasApplied(key string) bool {
	return key != "" && slices.Contains(d.AppliedKeys, key)
}

type OpenDisputeParams struct {
	DisputeID    string
	Type         DisputeType
	RaisedBy     string
	RaisedByRole Role
	Description  string
	Disputed     Money
	OpenedAt     time.Time
}

// OpenDispute starts a dispute against a booking.
func OpenDispute(b Booking, p OpenDisputeParams) (Dispute, error) {
	if !p.Type.Valid() {
		return Dispute{}, InvalidAmount("unknown dispute type %q", p.Type)
	}
	if p.Disputed.IsNegative() {
		return Dispute{}, InvalidAmount("disputed amount %s is negative", p.Disputed)
	}
	if p.Disputed.GreaterThan(b.Total) {
		return Dispute{}, InvalidAmount("disputed amount %s exceeds booking total %s", p.Disputed, b.Total)
	}
	return Dispute{
		DisputeID:    p.DisputeID,
		BookingID:    b.BookingID,
		TripID:       b.TripID,
		CampaignID:   b.CampaignID,
		Type:         p.Type,
		RaisedBy:     p.RaisedBy,
		RaisedByRole: p.RaisedByRole,
		Description:  p.Description,
		Disputed:     p.Disputed,
		Refunded:     Zero,
		Status:       DisputeOpen,
		CreatedAt:    p.OpenedAt,
		UpdatedAt:    p.OpenedAt,
	}, nil
}

type DisputeTransition struct {
	Target     DisputeStatus
	Resolution string
	Refund     Money
}

// TransitionDispute moves d along one edge of the workflow. A refund is only
// accepted when resolving, and never beyond the disputed amount or what the
// traveler has paid on b.
func TransitionDispute(d Dispute, b Booking, t DisputeTransition, key string, at time.Time) (Dispute, bool, error) {
	if d.HasApplied(key) {
		return d, false, nil
	}
	if !d.Status.CanMoveTo(t.Target) {
		return Dispute{}, false, IllegalTransition(d.Status, t.Target)
	}
	resolution := strings.TrimSpace(t.Resolution)
	if t.Target.Terminal() && resolution == "" {
		return Dispute{}, false, newError(KindResolutionRequired, "dispute %s needs a resolution to become %s", d.DisputeID, t.Target)
	}
	if t.Refund.IsNegative() {
		return Dispute{}, false, InvalidAmount("refund %s is negative", t.Refund)
	}
	if t.Refund.IsPositive() {
		if t.Target != DisputeResolved {
			return Dispute{}, false, InvalidAmount("refund is only allowed when resolving, not when %s", t.Target)
		}
		if t.Refund.GreaterThan(d.Disputed) {
			return Dispute{}, false, InvalidAmount("refund %s exceeds disputed amount %s", t.Refund, d.Disputed)
		}
		if t.Refund.GreaterThan(b.Paid) {
			return Dispute{}, false, InvalidAmount("refund %s exceeds paid %s", t.Refund, b.Paid)
		}
	}

	d.AppliedKeys = slices.Clone(d.AppliedKeys)
	d.Status = t.Target
	if resolution != "" {
		d.Resolution = resolution
	}
	d.Refunded = t.Refund
	if key != "" {
		d.AppliedKeys = append(d.AppliedKeys, key)
	}
	d.UpdatedAt = at
	return d, true, nil
}
