package entity_test

import (
	"settlement/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrip_ReserveRelease(t *testing.T) {
	trip, err := entity.NewTrip("trip-1", "campaign-1", 10, day(30), now)
	require.NoError(t, err)
	assert.Equal(t, 10, trip.Remaining())

	trip, err = trip.Reserve(3)
	require.NoError(t, err)
	assert.Equal(t, 7, trip.Remaining())

	_, err = trip.Reserve(8)
	assert.ErrorIs(t, err, entity.ErrCapacityExceeded)

	trip, err = trip.Reserve(7)
	require.NoError(t, err)
	assert.Equal(t, 0, trip.Remaining())

	trip = trip.Release(3).Release(20)
	assert.Equal(t, 10, trip.Remaining(), "release clamps at total")
	assert.Equal(t, 0, trip.Booked)
}

func TestNewTrip_invalidCapacity(t *testing.T) {
	_, err := entity.NewTrip("trip-1", "campaign-1", 0, day(30), now)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}
