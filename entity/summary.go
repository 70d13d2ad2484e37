package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is the half-open interval [From, To). A zero To leaves it open.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) Contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	return w.To.IsZero() || t.Before(w.To)
}

type FinancialSummary struct {
	CampaignID     string          `json:"campaign_id"`
	Window         Window          `json:"window"`
	FeeRate        decimal.Decimal `json:"fee_rate"`
	GMV            Money           `json:"gmv"`
	PlatformFee    Money           `json:"platform_fee"`
	NetPayout      Money           `json:"net_payout"`
	PendingBalance Money           `json:"pending_balance"`
	RefundTotal    Money           `json:"refund_total"`
	Bookings       int             `json:"bookings"`
	Passengers     int             `json:"passengers"`
}

type PlatformSummary struct {
	Window    Window             `json:"window"`
	Total     FinancialSummary   `json:"total"`
	Campaigns []FinancialSummary `json:"campaigns"`
}
