package message_test

import (
	"context"
	"settlement/audit"
	commands "settlement/command"
	"settlement/entity"
	"settlement/ledger"
	"settlement/memory"
	"settlement/message"
	"settlement/message/command"
	"settlement/message/event"
	"settlement/report"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierMock struct {
	lock     sync.Mutex
	channels []string
}

func (n *notifierMock) Notify(ctx context.Context, channel string, notification event.Notification) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.channels = append(n.channels, channel)
	return nil
}

func (n *notifierMock) Channels() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return slices.Clone(n.channels)
}

func TestRouter_commandsAndNotifications(t *testing.T) {
	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	eventBus, err := message.NewEventBus(pubSub, logger)
	require.NoError(t, err)

	store := memory.NewStore(eventBus)
	l := ledger.New(ledger.Deps{
		Store:      store,
		Recorder:   audit.NewRecorder(store, nil),
		AuditLog:   store,
		Summarizer: report.NewEngine(report.DefaultFeeRate),
	}, ledger.Config{OperationTimeout: time.Second})

	notifier := &notifierMock{}
	router, err := message.NewRouter(message.RouterDeps{
		CommandHandler: command.NewHandler(l),
		EventHandler:   event.NewHandler(notifier),
		Logger:         logger,
		NewSubscriber:  message.GoChannelSubscribers(pubSub),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	bus, err := command.NewBus(pubSub, logger)
	require.NoError(t, err)

	err = bus.Send(ctx, commands.NewCreateTrip("trip-key", "ops", "trip-1", "campaign-1", 10, time.Now().Add(48*time.Hour)))
	require.NoError(t, err)

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		_, err := l.GetTrip(ctx, "trip-1")
		assert.NoError(c, err)
	}, 5*time.Second, 50*time.Millisecond)

	err = bus.Send(ctx, commands.NewCreateBooking("booking-key", "traveler-1", "b-1", "traveler-1", "trip-1", 2, entity.MustMoney("100"), entity.Money{}))
	require.NoError(t, err)

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		b, err := l.GetBooking(ctx, "b-1")
		if !assert.NoError(c, err) {
			return
		}
		assert.Equal(c, "200.000", b.Total.String())
	}, 5*time.Second, 50*time.Millisecond)

	trip, err := l.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, 8, trip.Remaining())

	assert.EventuallyWithT(t, func(c *assert.CollectT) {
		channels := notifier.Channels()
		assert.Contains(c, channels, "campaign.campaign-1")
		assert.Contains(c, channels, "traveler.traveler-1")
	}, 5*time.Second, 50*time.Millisecond)
}
