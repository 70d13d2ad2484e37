package memory_test

import (
	"context"
	"fmt"
	"settlement/entity"
	"settlement/memory"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	lock   sync.Mutex
	events []any
}

func (p *publisherMock) Publish(ctx context.Context, event any) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.events = append(p.events, event)
	return nil
}

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func seedTrip(t *testing.T, s *memory.Store, capacity int) entity.Trip {
	t.Helper()
	trip, err := entity.NewTrip("trip-1", "campaign-1", capacity, now.Add(24*time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, s.CreateTrip(context.Background(), trip, nil))
	return trip
}

func newBooking(t *testing.T, id string, passengers int) entity.Booking {
	t.Helper()
	b, err := entity.NewLifecycle(nil).NewBooking(entity.NewBookingParams{
		BookingID:      id,
		TravelerID:     "traveler-1",
		CampaignID:     "campaign-1",
		TripID:         "trip-1",
		PassengerCount: passengers,
		UnitPrice:      entity.MustMoney("100"),
		CreatedAt:      now,
	})
	require.NoError(t, err)
	b.Version = 1
	return b
}

func TestStore_CreateBooking_neverOverbooks(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	seedTrip(t, s, 10)

	var wg sync.WaitGroup
	var lock sync.Mutex
	created := 0
	for i := 0; i < 25; i++ {
		b := newBooking(t, fmt.Sprintf("b-%d", i), 3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateBooking(ctx, b, nil)
			if err == nil {
				lock.Lock()
				created++
				lock.Unlock()
				return
			}
			assert.ErrorIs(t, err, entity.ErrCapacityExceeded)
		}()
	}
	wg.Wait()

	trip, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, 9, trip.Booked)
	assert.Equal(t, 1, trip.Remaining())
}

func TestStore_UpdateBooking(t *testing.T) {
	ctx := context.Background()
	pub := &publisherMock{}
	s := memory.NewStore(pub)
	seedTrip(t, s, 10)

	b := newBooking(t, "b-1", 3)
	require.NoError(t, s.CreateBooking(ctx, b, []any{"created"}))

	cancelled, _, err := entity.NewLifecycle(nil).Cancel(b, "plans changed", nil, now)
	require.NoError(t, err)
	cancelled.Version = 2

	err = s.UpdateBooking(ctx, entity.BookingChange{Booking: cancelled, ExpectedVersion: 7, ReleaseSeats: 3}, []any{"stale"})
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)

	require.NoError(t, s.UpdateBooking(ctx, entity.BookingChange{Booking: cancelled, ExpectedVersion: 1, ReleaseSeats: 3}, []any{"cancelled"}))

	trip, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 10, trip.Remaining())

	stored, err := s.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, stored.Status)
	assert.Equal(t, int64(2), stored.Version)

	assert.Equal(t, []any{"created", "cancelled"}, pub.events, "failed writes publish nothing")
}

func TestStore_UpdateDispute_atomicWithBooking(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)
	seedTrip(t, s, 10)

	b := newBooking(t, "b-1", 1)
	require.NoError(t, s.CreateBooking(ctx, b, nil))

	d, err := entity.OpenDispute(b, entity.OpenDisputeParams{DisputeID: "d-1", Type: entity.DisputeBilling, Disputed: entity.MustMoney("10"), OpenedAt: now})
	require.NoError(t, err)
	d.Version = 1
	require.NoError(t, s.CreateDispute(ctx, d, nil))

	moved := d
	moved.Status = entity.DisputeUnderReview
	moved.Version = 2
	stale := b
	stale.Version = 2

	err = s.UpdateDispute(ctx, entity.DisputeChange{
		Dispute:         moved,
		ExpectedVersion: 1,
		Booking:         &entity.BookingChange{Booking: stale, ExpectedVersion: 5},
	}, nil)
	assert.ErrorIs(t, err, entity.ErrConcurrentModification)

	got, err := s.GetDispute(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DisputeOpen, got.Status, "dispute untouched when the booking write is rejected")

	list, err := s.ListDisputes(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(nil)

	_, err := s.GetBooking(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = s.GetTrip(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = s.GetDispute(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	err = s.CreateBooking(ctx, newBooking(t, "b-1", 1), nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
