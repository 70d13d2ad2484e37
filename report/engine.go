// Package report derives campaign financial figures from booking snapshots.
// Nothing here keeps running totals: every summary is recomputed from the
// bookings it is given.
package report

import (
	"context"
	"settlement/entity"
	"slices"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultFeeRate is the platform's cut of GMV.
var DefaultFeeRate = decimal.RequireFromString("0.02")

// checkEvery is how many bookings are folded between context checks.
const checkEvery = 256

type Engine struct {
	feeRate decimal.Decimal
}

func NewEngine(feeRate decimal.Decimal) Engine {
	return Engine{feeRate: feeRate}
}

func (e Engine) FeeRate() decimal.Decimal {
	return e.feeRate
}

// Summarize folds the bookings of one campaign created inside w. Bookings of
// other campaigns are ignored. A cancelled context discards the partial sum.
func (e Engine) Summarize(ctx context.Context, campaignID string, bookings []entity.Booking, w entity.Window) (entity.FinancialSummary, error) {
	s := entity.FinancialSummary{
		CampaignID: campaignID,
		Window:     w,
		FeeRate:    e.feeRate,
	}

	gmv, pending, refunds := entity.Zero, entity.Zero, entity.Zero
	for i, b := range bookings {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return entity.FinancialSummary{}, err
			}
		}
		if b.CampaignID != campaignID {
			continue
		}

		for _, r := range b.Refunds {
			if w.Contains(r.RefundedAt) {
				refunds = refunds.Add(r.Amount)
			}
		}

		if !w.Contains(b.CreatedAt) {
			continue
		}
		s.Bookings++
		if b.Status != entity.StatusCancelled {
			gmv = gmv.Add(b.Paid)
			s.Passengers += b.PassengerCount
		}
		if !b.Status.Terminal() {
			pending = pending.Add(b.Remaining)
		}
	}

	s.GMV = gmv
	s.PlatformFee = gmv.MulRate(e.feeRate)
	s.NetPayout = gmv.Sub(s.PlatformFee)
	s.PendingBalance = pending
	s.RefundTotal = refunds
	return s, nil
}

// SummarizeByCampaign summarizes every campaign present in bookings in
// parallel and adds a platform-wide total. Campaigns come back sorted by id.
func (e Engine) SummarizeByCampaign(ctx context.Context, bookings []entity.Booking, w entity.Window) (entity.PlatformSummary, error) {
	byCampaign := map[string][]entity.Booking{}
	for _, b := range bookings {
		byCampaign[b.CampaignID] = append(byCampaign[b.CampaignID], b)
	}

	ids := make([]string, 0, len(byCampaign))
	for id := range byCampaign {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	summaries := make([]entity.FinancialSummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			s, err := e.Summarize(gctx, id, byCampaign[id], w)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entity.PlatformSummary{}, err
	}
	if err := ctx.Err(); err != nil {
		return entity.PlatformSummary{}, err
	}

	total := entity.FinancialSummary{Window: w, FeeRate: e.feeRate}
	for _, s := range summaries {
		total.GMV = total.GMV.Add(s.GMV)
		total.PendingBalance = total.PendingBalance.Add(s.PendingBalance)
		total.RefundTotal = total.RefundTotal.Add(s.RefundTotal)
		total.Bookings += s.Bookings
		total.Passengers += s.Passengers
	}
	total.PlatformFee = total.GMV.MulRate(e.feeRate)
	total.NetPayout = total.GMV.Sub(total.PlatformFee)

	return entity.PlatformSummary{
		Window:    w,
		Total:     total,
		Campaigns: summaries,
	}, nil
}
