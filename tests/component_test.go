package tests_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	notifications := &NotificationsRecorder{}

	startService(t, notifications)

	tripID := uuid.NewString()
	campaignID := uuid.NewString()

	resp := sendRequest(t, http.MethodPost, "/trips", map[string]any{
		"trip_id":        tripID,
		"campaign_id":    campaignID,
		"total_capacity": 10,
		"departure_time": time.Now().Add(72 * time.Hour).UTC(),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	t.Run("async booking", func(t *testing.T) {
		bookingID := uuid.NewString()
		travelerID := uuid.NewString()
		headers := map[string]string{
			"Idempotency-Key": uuid.NewString(),
			"Prefer":          "respond-async",
			"Actor-ID":        travelerID,
		}
		req := map[string]any{
			"booking_id":      bookingID,
			"traveler_id":     travelerID,
			"trip_id":         tripID,
			"passenger_count": 2,
			"unit_price":      "150",
			"discount":        "30",
		}

		for range 3 {
			resp := sendRequest(t, http.MethodPost, "/bookings", req, headers)
			require.Equal(t, http.StatusAccepted, resp.status, string(resp.body))
		}

		require.EventuallyWithT(t, func(c *assert.CollectT) {
			_, status := getBooking(t, bookingID)
			assert.Equal(c, http.StatusOK, status)
		}, 10*time.Second, 100*time.Millisecond)

		b, _ := getBooking(t, bookingID)
		assert.Equal(t, "pending_payment", b.Status)
		assert.Equal(t, "270.000", b.Total)
		assert.Equal(t, 2, getTrip(t, tripID).Booked, "redelivered commands reserve seats once")

		resp := sendRequest(t, http.MethodPost, "/bookings/"+bookingID+"/payments",
			map[string]any{"amount": "100"},
			map[string]string{"Idempotency-Key": uuid.NewString()})
		require.Equal(t, http.StatusOK, resp.status, string(resp.body))

		var payment struct {
			Result  Booking `json:"result"`
			Applied bool    `json:"applied"`
		}
		require.NoError(t, json.Unmarshal(resp.body, &payment))
		assert.True(t, payment.Applied)
		assert.Equal(t, "partially_paid", payment.Result.Status)
		assert.Equal(t, "170.000", payment.Result.Remaining)

		assertNotificationsSent(t, notifications, "traveler."+travelerID, "BookingCreated", "BookingStatusChanged")
		assertNotificationsSent(t, notifications, "campaign."+campaignID, "TripCreated", "BookingCreated")
		assertNotificationsSent(t, notifications, "booking."+bookingID, "BookingStatusChanged")
	})

	t.Run("over capacity", func(t *testing.T) {
		resp := sendRequest(t, http.MethodPost, "/bookings", map[string]any{
			"booking_id":      uuid.NewString(),
			"traveler_id":     uuid.NewString(),
			"trip_id":         tripID,
			"passenger_count": 9,
			"unit_price":      "150",
		}, map[string]string{"Idempotency-Key": uuid.NewString()})
		require.Equal(t, http.StatusConflict, resp.status, string(resp.body))

		var body struct {
			Error struct {
				Kind string `json:"kind"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(resp.body, &body), string(resp.body))
		assert.Equal(t, "capacity_exceeded", body.Error.Kind)
		assert.Equal(t, 8, getTrip(t, tripID).RemainingSeats)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, status := getBooking(t, uuid.NewString())
		assert.Equal(t, http.StatusNotFound, status)
	})
}
