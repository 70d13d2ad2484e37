package ledger

import (
	"context"
	"fmt"
	"settlement/entity"
)

func (l *Ledger) GetBooking(ctx context.Context, bookingID string) (entity.Booking, error) {
	return run(l, ctx, "get_booking", func(ctx context.Context) (entity.Booking, error) {
		return l.store.GetBooking(ctx, bookingID)
	})
}

func (l *Ledger) ListBookings(ctx context.Context, filter entity.BookingFilter) ([]entity.Booking, error) {
	return run(l, ctx, "list_bookings", func(ctx context.Context) ([]entity.Booking, error) {
		return l.store.ListBookings(ctx, filter)
	})
}

func (l *Ledger) GetTrip(ctx context.Context, tripID string) (entity.Trip, error) {
	return run(l, ctx, "get_trip", func(ctx context.Context) (entity.Trip, error) {
		return l.store.GetTrip(ctx, tripID)
	})
}

func (l *Ledger) GetDispute(ctx context.Context, disputeID string) (entity.Dispute, error) {
	return run(l, ctx, "get_dispute", func(ctx context.Context) (entity.Dispute, error) {
		return l.store.GetDispute(ctx, disputeID)
	})
}

func (l *Ledger) ListDisputes(ctx context.Context, bookingID string) ([]entity.Dispute, error) {
	return run(l, ctx, "list_disputes", func(ctx context.Context) ([]entity.Dispute, error) {
		return l.store.ListDisputes(ctx, bookingID)
	})
}

func (l *Ledger) AuditTrail(ctx context.Context, entityType entity.EntityType, entityID string) ([]entity.AuditEntry, error) {
	return run(l, ctx, "audit_trail", func(ctx context.Context) ([]entity.AuditEntry, error) {
		return l.auditLog.ListAuditEntries(ctx, entityType, entityID)
	})
}

// CampaignSummary recomputes the campaign's figures from a fresh snapshot of
// its bookings.
func (l *Ledger) CampaignSummary(ctx context.Context, campaignID string, w entity.Window) (entity.FinancialSummary, error) {
	return run(l, ctx, "campaign_summary", func(ctx context.Context) (entity.FinancialSummary, error) {
		bookings, err := l.store.ListBookings(ctx, entity.BookingFilter{CampaignID: campaignID})
		if err != nil {
			return entity.FinancialSummary{}, fmt.Errorf("loading bookings: %w", err)
		}
		return l.summarizer.Summarize(ctx, campaignID, bookings, w)
	})
}

func (l *Ledger) PlatformSummary(ctx context.Context, w entity.Window) (entity.PlatformSummary, error) {
	return run(l, ctx, "platform_summary", func(ctx context.Context) (entity.PlatformSummary, error) {
		bookings, err := l.store.ListBookings(ctx, entity.BookingFilter{})
		if err != nil {
			return entity.PlatformSummary{}, fmt.Errorf("loading bookings: %w", err)
		}
		return l.summarizer.SummarizeByCampaign(ctx, bookings, w)
	})
}
