package clients_test

import (
	"context"
	"errors"
	"settlement/clients"
	"settlement/message/event"
	"testing"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) publish(ctx context.Context, channel string, message any) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

func TestNotificationsClient_Notify(t *testing.T) {
	pub := &publisherMock{}
	pub.On("publish", "traveler.t-1", map[string]any{
		"type":           "BookingCreated",
		"payload":        "body",
		"correlation_id": "corr-1",
	}).Return(nil)

	c := clients.NewNotificationsClient(pub.publish, nil)
	ctx := log.ContextWithCorrelationID(context.Background(), "corr-1")

	err := c.Notify(ctx, "traveler.t-1", event.Notification{Type: "BookingCreated", Payload: "body"})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestNotificationsClient_Notify_failure(t *testing.T) {
	pub := &publisherMock{}
	pub.On("publish", "campaign.c-1", mock.Anything).Return(errors.New("pubnub down"))

	c := clients.NewNotificationsClient(pub.publish, nil)

	err := c.Notify(context.Background(), "campaign.c-1", event.Notification{Type: "TripCreated"})
	assert.ErrorContains(t, err, "pubnub down")
	assert.ErrorContains(t, err, "campaign.c-1")
}

func TestLogPublisher(t *testing.T) {
	err := clients.LogPublisher()(context.Background(), "booking.b-1", "hello")
	assert.NoError(t, err)
}
