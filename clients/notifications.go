package clients

import (
	"context"
	"fmt"
	"net/http"
	"settlement/message/event"
	"settlement/monitoring"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	pubnub "github.com/pubnub/go"
)

// PublishFunc delivers one message to one realtime channel.
type PublishFunc func(ctx context.Context, channel string, message any) error

func NewPubNub(publishKey, subscribeKey, secretKey, userID string) *pubnub.PubNub {
	config := pubnub.NewConfig()
	config.PublishKey = publishKey
	config.SubscribeKey = subscribeKey
	config.SecretKey = secretKey
	config.UUID = userID

	return pubnub.NewPubNub(config)
}

func PubNubPublisher(pn *pubnub.PubNub) PublishFunc {
	return func(ctx context.Context, channel string, message any) error {
		_, status, err := pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return fmt.Errorf("publish request: %w", err)
		}

		if status.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %v", status.StatusCode)
		}

		return nil
	}
}

// LogPublisher only logs. It stands in for PubNub when no keys are configured.
func LogPublisher() PublishFunc {
	return func(ctx context.Context, channel string, message any) error {
		log.FromContext(ctx).
			WithField("channel", channel).
			WithField("message", message).
			Info("Notification not sent, realtime channels are disabled")
		return nil
	}
}

type NotificationsClient struct {
	publish PublishFunc
	monitor *monitoring.Monitor
}

func NewNotificationsClient(publish PublishFunc, monitor *monitoring.Monitor) NotificationsClient {
	return NotificationsClient{
		publish: publish,
		monitor: monitor,
	}
}

func (c NotificationsClient) Notify(ctx context.Context, channel string, n event.Notification) error {
	message := map[string]any{
		"type":           n.Type,
		"payload":        n.Payload,
		"correlation_id": log.CorrelationIDFromContext(ctx),
	}

	if err := c.publish(ctx, channel, message); err != nil {
		c.monitor.TrackNotification(n.Type, "failed")
		return fmt.Errorf("notifying channel %s: %w", channel, err)
	}

	c.monitor.TrackNotification(n.Type, "sent")
	return nil
}
