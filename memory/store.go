// Package memory keeps trips, bookings, disputes and audit entries in process
// memory. Events go to a publisher after each committed write.
package memory

import (
	"cmp"
	"context"
	"settlement/entity"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type Store struct {
	lock      sync.RWMutex
	trips     map[string]entity.Trip
	bookings  map[string]entity.Booking
	disputes  map[string]entity.Dispute
	audit     []entity.AuditEntry
	publisher EventPublisher
}

// NewStore returns an empty store. publisher may be nil.
func NewStore(publisher EventPublisher) *Store {
	return &Store{
		trips:     map[string]entity.Trip{},
		bookings:  map[string]entity.Booking{},
		disputes:  map[string]entity.Dispute{},
		publisher: publisher,
	}
}

func (s *Store) CreateTrip(ctx context.Context, trip entity.Trip, events []any) error {
	s.lock.Lock()
	if _, ok := s.trips[trip.TripID]; ok {
		s.lock.Unlock()
		return entity.ConcurrentModification("trip", trip.TripID)
	}
	s.trips[trip.TripID] = trip
	s.lock.Unlock()

	s.publish(ctx, events)
	return nil
}

func (s *Store) GetTrip(ctx context.Context, tripID string) (entity.Trip, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return entity.Trip{}, entity.NotFound("trip", tripID)
	}
	return trip, nil
}

// CreateBooking reserves seats and inserts the booking under one lock.
func (s *Store) CreateBooking(ctx context.Context, b entity.Booking, events []any) error {
	s.lock.Lock()
	if _, ok := s.bookings[b.BookingID]; ok {
		s.lock.Unlock()
		return entity.ConcurrentModification("booking", b.BookingID)
	}
	trip, ok := s.trips[b.TripID]
	if !ok {
		s.lock.Unlock()
		return entity.NotFound("trip", b.TripID)
	}
	trip, err := trip.Reserve(b.PassengerCount)
	if err != nil {
		s.lock.Unlock()
		return err
	}
	s.trips[trip.TripID] = trip
	s.bookings[b.BookingID] = b.Clone()
	s.lock.Unlock()

	s.publish(ctx, events)
	return nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (entity.Booking, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return entity.Booking{}, entity.NotFound("booking", bookingID)
	}
	return b.Clone(), nil
}

// ListBookings returns matching bookings ordered by creation time.
func (s *Store) ListBookings(ctx context.Context, filter entity.BookingFilter) ([]entity.Booking, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []entity.Booking
	for _, b := range s.bookings {
		if filter.Matches(b) {
			out = append(out, b.Clone())
		}
	}
	slices.SortFunc(out, func(a, b entity.Booking) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.BookingID, b.BookingID)
	})
	return out, nil
}

func (s *Store) UpdateBooking(ctx context.Context, change entity.BookingChange, events []any) error {
	s.lock.Lock()
	if err := s.applyBooking(change); err != nil {
		s.lock.Unlock()
		return err
	}
	s.lock.Unlock()

	s.publish(ctx, events)
	return nil
}

func (s *Store) checkBooking(change entity.BookingChange) error {
	id := change.Booking.BookingID
	cur, ok := s.bookings[id]
	if !ok {
		return entity.NotFound("booking", id)
	}
	if cur.Version != change.ExpectedVersion {
		return entity.ConcurrentModification("booking", id)
	}
	return nil
}

// applyBooking must run with the write lock held.
func (s *Store) applyBooking(change entity.BookingChange) error {
	if err := s.checkBooking(change); err != nil {
		return err
	}
	b := change.Booking
	if change.ReleaseSeats > 0 {
		if trip, ok := s.trips[b.TripID]; ok {
			s.trips[b.TripID] = trip.Release(change.ReleaseSeats)
		}
	}
	s.bookings[b.BookingID] = b.Clone()
	return nil
}

func (s *Store) CreateDispute(ctx context.Context, d entity.Dispute, events []any) error {
	s.lock.Lock()
	if _, ok := s.disputes[d.DisputeID]; ok {
		s.lock.Unlock()
		return entity.ConcurrentModification("dispute", d.DisputeID)
	}
	if _, ok := s.bookings[d.BookingID]; !ok {
		s.lock.Unlock()
		return entity.NotFound("booking", d.BookingID)
	}
	s.disputes[d.DisputeID] = cloneDispute(d)
	s.lock.Unlock()

	s.publish(ctx, events)
	return nil
}

func (s *Store) GetDispute(ctx context.Context, disputeID string) (entity.Dispute, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	d, ok := s.disputes[disputeID]
	if !ok {
		return entity.Dispute{}, entity.NotFound("dispute", disputeID)
	}
	return cloneDispute(d), nil
}

func (s *Store) ListDisputes(ctx context.Context, bookingID string) ([]entity.Dispute, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []entity.Dispute
	for _, d := range s.disputes {
		if bookingID == "" || d.BookingID == bookingID {
			out = append(out, cloneDispute(d))
		}
	}
	slices.SortFunc(out, func(a, b entity.Dispute) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.DisputeID, b.DisputeID)
	})
	return out, nil
}

// UpdateDispute writes the dispute and, when present, the booking
// adjustment. Either both versions match or nothing is written.
func (s *Store) UpdateDispute(ctx context.Context, change entity.DisputeChange, events []any) error {
	s.lock.Lock()
	id := change.Dispute.DisputeID
	cur, ok := s.disputes[id]
	if !ok {
		s.lock.Unlock()
		return entity.NotFound("dispute", id)
	}
	if cur.Version != change.ExpectedVersion {
		s.lock.Unlock()
		return entity.ConcurrentModification("dispute", id)
	}
	if change.Booking != nil {
		if err := s.applyBooking(*change.Booking); err != nil {
			s.lock.Unlock()
			return err
		}
	}
	s.disputes[id] = cloneDispute(change.Dispute)
	s.lock.Unlock()

	s.publish(ctx, events)
	return nil
}

func (s *Store) AppendAuditEntry(ctx context.Context, entry entity.AuditEntry) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	entry.Changes = slices.Clone(entry.Changes)
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, entityType entity.EntityType, entityID string) ([]entity.AuditEntry, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []entity.AuditEntry
	for _, e := range s.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) publish(ctx context.Context, events []any) {
	if s.publisher == nil {
		return
	}
	for _, e := range events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			log.FromContext(ctx).WithError(err).Warn("Could not publish event")
		}
	}
}

func cloneDispute(d entity.Dispute) entity.Dispute {
	d.AppliedKeys = slices.Clone(d.AppliedKeys)
	return d
}
