package ledger

import (
	"context"
	"errors"
	"fmt"
	"settlement/entity"
	"settlement/event"
	"time"
)

type TripResult struct {
	Trip     entity.Trip
	Applied  bool
	Warnings []error
}

type CreateTripParams struct {
	TripID        string
	CampaignID    string
	TotalCapacity int
	DepartureTime time.Time
}

func (l *Ledger) CreateTrip(ctx context.Context, p CreateTripParams, meta Meta) (TripResult, error) {
	return run(l, ctx, "create_trip", func(ctx context.Context) (TripResult, error) {
		tripID := idFor(entity.EntityTrip, p.TripID, meta.IdempotencyKey)

		existing, err := l.store.GetTrip(ctx, tripID)
		if err == nil {
			return TripResult{Trip: existing}, nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return TripResult{}, fmt.Errorf("looking up trip: %w", err)
		}

		trip, err := entity.NewTrip(tripID, p.CampaignID, p.TotalCapacity, p.DepartureTime, l.now())
		if err != nil {
			return TripResult{}, err
		}
		trip.Version = 1

		events := []any{event.NewTripCreated(meta.IdempotencyKey, meta.Actor, trip)}
		if err := l.store.CreateTrip(ctx, trip, events); err != nil {
			return TripResult{}, fmt.Errorf("storing trip: %w", err)
		}
		l.monitor.TrackTripRemaining(trip.TripID, trip.Remaining())

		warnings := l.record(ctx, meta.Actor, entity.ActionTripCreated, entity.EntityTrip, trip.TripID, entity.CreatedTrip(trip))
		return TripResult{Trip: trip, Applied: true, Warnings: warnings}, nil
	})
}
