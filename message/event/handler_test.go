package event_test

import (
	"context"
	"errors"
	"settlement/entity"
	events "settlement/event"
	"settlement/message/event"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierMock struct {
	lock     sync.Mutex
	channels []string
	types    []string
	err      error
}

func (n *notifierMock) Notify(ctx context.Context, channel string, notification event.Notification) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.err != nil {
		return n.err
	}
	n.channels = append(n.channels, channel)
	n.types = append(n.types, notification.Type)
	return nil
}

func TestHandler_NotifyBookingStatusChanged(t *testing.T) {
	n := &notifierMock{}
	h := event.NewHandler(n)

	before := entity.Booking{BookingID: "b-1", TravelerID: "t-1", CampaignID: "c-1", Status: entity.StatusPendingPayment}
	after := before
	after.Status = entity.StatusCancelled
	e := events.NewBookingStatusChanged("key-1", "ops", entity.ActionBookingCancelled, before, after)

	require.NoError(t, h.NotifyBookingStatusChanged(context.Background(), &e))

	assert.Equal(t, []string{"traveler.t-1", "campaign.c-1", "booking.b-1"}, n.channels)
	assert.Equal(t, []string{"BookingStatusChanged", "BookingStatusChanged", "BookingStatusChanged"}, n.types)
}

func TestHandler_NotifyDisputeOpened(t *testing.T) {
	n := &notifierMock{}
	h := event.NewHandler(n)

	e := events.NewDisputeOpened("key-1", "traveler-1", entity.Dispute{DisputeID: "d-1", BookingID: "b-1", CampaignID: "c-1"})
	require.NoError(t, h.NotifyDisputeOpened(context.Background(), &e))

	assert.Equal(t, []string{"campaign.c-1", "booking.b-1"}, n.channels)
}

func TestHandler_notifierFailure(t *testing.T) {
	n := &notifierMock{err: errors.New("unavailable")}
	h := event.NewHandler(n)

	e := events.NewTripCreated("key-1", "ops", entity.Trip{TripID: "trip-1", CampaignID: "c-1"})
	err := h.NotifyTripCreated(context.Background(), &e)
	assert.ErrorContains(t, err, "campaign.c-1")
}

func TestHandler_Handlers(t *testing.T) {
	h := event.NewHandler(&notifierMock{})
	assert.Len(t, h.Handlers(), 5)
}
