package entity

// BookingChange is one versioned write of a booking. The store applies it
// only when the stored version still equals ExpectedVersion.
type BookingChange struct {
	Booking         Booking
	ExpectedVersion int64
	// ReleaseSeats is the passenger count to hand back to the trip in the
	// same write, 0 when the change holds on to its seats.
	ReleaseSeats int
}

// DisputeChange is one versioned write of a dispute, optionally carrying the
// booking adjustment of a refund that must land in the same transaction.
type DisputeChange struct {
	Dispute         Dispute
	ExpectedVersion int64
	Booking         *BookingChange
}
