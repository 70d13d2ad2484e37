// Package event turns ledger events into notifications for the traveler and
// campaign channels.
package event

import (
	"context"
	"fmt"
	events "settlement/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

type Notifier interface {
	Notify(ctx context.Context, channel string, n Notification) error
}

type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func TravelerChannel(travelerID string) string { return "traveler." + travelerID }

func CampaignChannel(campaignID string) string { return "campaign." + campaignID }

func BookingChannel(bookingID string) string { return "booking." + bookingID }

// NewProcessorConfig subscribes each handler with its own consumer group.
// newSubscriber is called once per handler.
func NewProcessorConfig(
	logger watermill.LoggerAdapter,
	newSubscriber func(consumerGroup string) (message.Subscriber, error),
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return newSubscriber("svc-settlement." + params.HandlerName)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	}
}

type Handler struct {
	notifier Notifier
}

func NewHandler(n Notifier) Handler {
	return Handler{
		notifier: n,
	}
}

func (h Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		cqrs.NewEventHandler("notify-trip-created", h.NotifyTripCreated),
		cqrs.NewEventHandler("notify-booking-created", h.NotifyBookingCreated),
		cqrs.NewEventHandler("notify-booking-status-changed", h.NotifyBookingStatusChanged),
		cqrs.NewEventHandler("notify-dispute-opened", h.NotifyDisputeOpened),
		cqrs.NewEventHandler("notify-dispute-status-changed", h.NotifyDisputeStatusChanged),
	}
}

func (h Handler) NotifyTripCreated(ctx context.Context, e *events.TripCreated) error {
	return h.notify(ctx, Notification{Type: "TripCreated", Payload: e},
		CampaignChannel(e.CampaignID))
}

func (h Handler) NotifyBookingCreated(ctx context.Context, e *events.BookingCreated) error {
	return h.notify(ctx, Notification{Type: "BookingCreated", Payload: e},
		TravelerChannel(e.TravelerID), CampaignChannel(e.CampaignID))
}

func (h Handler) NotifyBookingStatusChanged(ctx context.Context, e *events.BookingStatusChanged) error {
	return h.notify(ctx, Notification{Type: "BookingStatusChanged", Payload: e},
		TravelerChannel(e.TravelerID), CampaignChannel(e.CampaignID), BookingChannel(e.BookingID))
}

func (h Handler) NotifyDisputeOpened(ctx context.Context, e *events.DisputeOpened) error {
	return h.notify(ctx, Notification{Type: "DisputeOpened", Payload: e},
		CampaignChannel(e.CampaignID), BookingChannel(e.BookingID))
}

func (h Handler) NotifyDisputeStatusChanged(ctx context.Context, e *events.DisputeStatusChanged) error {
	return h.notify(ctx, Notification{Type: "DisputeStatusChanged", Payload: e},
		CampaignChannel(e.CampaignID), BookingChannel(e.BookingID))
}

func (h Handler) notify(ctx context.Context, n Notification, channels ...string) error {
	for _, channel := range channels {
		if err := h.notifier.Notify(ctx, channel, n); err != nil {
			return fmt.Errorf("notifying %s: %w", channel, err)
		}
	}

	log.FromContext(ctx).
		WithField("type", n.Type).
		WithField("channels", channels).
		Debug("Notification sent")

	return nil
}
