package message

import (
	"fmt"
	"settlement/message/command"
	"settlement/message/event"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const poisonTopic = "settlement.poison"

type RouterDeps struct {
	CommandHandler command.Handler
	EventHandler   event.Handler
	Logger         watermill.LoggerAdapter
	// NewSubscriber builds the subscriber of one consumer group.
	NewSubscriber func(consumerGroup string) (message.Subscriber, error)
	// Publisher receives messages that failed every retry. Optional.
	Publisher message.Publisher
}

type Router struct {
	*message.Router
}

func NewRouter(deps RouterDeps) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	if err := addMiddlewares(router, deps.Publisher, deps.Logger); err != nil {
		return nil, fmt.Errorf("adding middlewares: %w", err)
	}

	ep, err := cqrs.NewEventProcessorWithConfig(router, event.NewProcessorConfig(deps.Logger, deps.NewSubscriber))
	if err != nil {
		return nil, fmt.Errorf("creating event processor: %w", err)
	}

	if err := ep.AddHandlers(deps.EventHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("adding event handlers: %w", err)
	}

	cp, err := cqrs.NewCommandProcessorWithConfig(router, command.NewProcessorConfig(deps.Logger, deps.NewSubscriber))
	if err != nil {
		return nil, fmt.Errorf("creating command processor: %w", err)
	}

	if err := cp.AddHandlers(deps.CommandHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("adding command handlers: %w", err)
	}

	return &Router{router}, nil
}

func RedisSubscribers(rdb *redis.Client, logger watermill.LoggerAdapter) func(string) (message.Subscriber, error) {
	return func(consumerGroup string) (message.Subscriber, error) {
		return redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        rdb,
			ConsumerGroup: consumerGroup,
		}, logger)
	}
}

// GoChannelSubscribers shares one in-process pub/sub between all handlers.
func GoChannelSubscribers(pubSub *gochannel.GoChannel) func(string) (message.Subscriber, error) {
	return func(string) (message.Subscriber, error) {
		return pubSub, nil
	}
}

func NewRedisPublisher(rdb *redis.Client, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating redis publisher: %w", err)
	}
	return publisher, nil
}
