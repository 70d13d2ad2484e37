package tests_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"settlement/config"
	"settlement/service"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getEnvOrDefault(key string, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

var addr = getEnvOrDefault("COMPONENT_TEST_ADDR", "localhost:18080")

func startService(t *testing.T, notifications *NotificationsRecorder) {
	t.Helper()

	t.Setenv("STORAGE", "memory")
	t.Setenv("HTTP_ADDR", addr)
	cfg, err := config.Load()
	require.NoError(t, err)

	svc, err := service.New(cfg, watermill.NopLogger{}, service.Deps{
		Publish: notifications.Publish,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	waitForHttpServer(t)
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get("http://" + addr + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

type response struct {
	status int
	body   []byte
}

func sendRequest(t *testing.T, method, path string, payload any, headers map[string]string) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}

	httpReq, err := http.NewRequest(method, "http://"+addr+path, body)
	require.NoError(t, err)

	httpReq.Header.Set("Correlation-ID", shortuuid.New())
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return response{status: resp.StatusCode, body: b}
}

type Booking struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Total     string `json:"total"`
	Paid      string `json:"paid"`
	Remaining string `json:"remaining"`
	Refunded  string `json:"refunded"`
}

type Trip struct {
	TripID         string `json:"trip_id"`
	Booked         int    `json:"booked"`
	RemainingSeats int    `json:"remaining_seats"`
}

func getBooking(t *testing.T, bookingID string) (Booking, int) {
	t.Helper()

	resp := sendRequest(t, http.MethodGet, "/bookings/"+bookingID, nil, nil)
	var b Booking
	if resp.status == http.StatusOK {
		require.NoError(t, json.Unmarshal(resp.body, &b), string(resp.body))
	}
	return b, resp.status
}

func getTrip(t *testing.T, tripID string) Trip {
	t.Helper()

	resp := sendRequest(t, http.MethodGet, "/trips/"+tripID, nil, nil)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))

	var trip Trip
	require.NoError(t, json.Unmarshal(resp.body, &trip))
	return trip
}

func assertNotificationsSent(t *testing.T, recorder *NotificationsRecorder, channel string, types ...string) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(collectT *assert.CollectT) {
			sent := recorder.Types(channel)
			for _, typ := range types {
				assert.Contains(collectT, sent, typ, "no %s notification on %s", typ, channel)
			}
		},
		10*time.Second,
		100*time.Millisecond,
	)
}
