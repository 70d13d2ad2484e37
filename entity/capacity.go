package entity

import "time"

type Trip struct {
	TripID        string    `json:"trip_id" db:"trip_id"`
	CampaignID    string    `json:"campaign_id" db:"campaign_id"`
	TotalCapacity int       `json:"total_capacity" db:"total_capacity"`
	Booked        int       `json:"booked" db:"booked"`
	DepartureTime time.Time `json:"departure_time" db:"departure_time"`
	Version       int64     `json:"version" db:"version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

func (t Trip) Remaining() int {
	return t.TotalCapacity - t.Booked
}

func NewTrip(tripID, campaignID string, capacity int, departure, createdAt time.Time) (Trip, error) {
	if capacity <= 0 {
		return Trip{}, InvalidAmount("trip capacity must be positive, got %d", capacity)
	}
	return Trip{
		TripID:        tripID,
		CampaignID:    campaignID,
		TotalCapacity: capacity,
		DepartureTime: departure,
		CreatedAt:     createdAt,
	}, nil
}

// Reserve books n seats. Stores run the same guard as one atomic update.
func (t Trip) Reserve(n int) (Trip, error) {
	if n <= 0 {
		return Trip{}, InvalidAmount("seat count must be positive, got %d", n)
	}
	if n > t.Remaining() {
		return Trip{}, newError(KindCapacityExceeded,
			"trip %s has %d seats left, %d requested", t.TripID, t.Remaining(), n)
	}
	t.Booked += n
	t.Version++
	return t, nil
}

// Release hands n seats back. Remaining never exceeds the total.
func (t Trip) Release(n int) Trip {
	t.Booked -= n
	if t.Booked < 0 {
		t.Booked = 0
	}
	t.Version++
	return t
}
