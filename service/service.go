package service

import (
	"context"
	"errors"
	"fmt"
	"settlement/audit"
	"settlement/clients"
	"settlement/config"
	"settlement/db"
	"settlement/http"
	"settlement/ledger"
	"settlement/memory"
	"settlement/message"
	"settlement/message/command"
	"settlement/message/event"
	"settlement/monitoring"
	"settlement/report"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	watermillMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Deps are the connections opened by the caller. DB and Redis are nil in
// memory mode.
type Deps struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Publish clients.PublishFunc
}

type auditStore interface {
	audit.Sink
	ledger.AuditLog
}

type Service struct {
	addr       string
	dbConn     *sqlx.DB
	msgRouter  *message.Router
	forwarder  *message.Forwarder
	httpRouter *echo.Echo
}

func New(cfg config.Config, logger watermill.LoggerAdapter, deps Deps) (*Service, error) {
	monitor := monitoring.NewMonitor()

	var (
		store         ledger.Store
		auditLog      auditStore
		publisher     watermillMessage.Publisher
		newSubscriber func(string) (watermillMessage.Subscriber, error)
		fwd           *message.Forwarder
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		if deps.DB == nil || deps.Redis == nil {
			return nil, errors.New("postgres storage needs a database and a redis client")
		}

		pgStore := db.NewStore(deps.DB, message.NewOutbox(logger))
		store, auditLog = pgStore, pgStore

		redisPublisher, err := message.NewRedisPublisher(deps.Redis, logger)
		if err != nil {
			return nil, err
		}
		publisher = redisPublisher
		newSubscriber = message.RedisSubscribers(deps.Redis, logger)

		fwd, err = message.NewForwarder(deps.DB, deps.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("creating forwarder: %w", err)
		}
	case config.StorageMemory:
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

		eventBus, err := message.NewEventBus(pubSub, logger)
		if err != nil {
			return nil, fmt.Errorf("creating event bus: %w", err)
		}

		memStore := memory.NewStore(eventBus)
		store, auditLog = memStore, memStore
		publisher = pubSub
		newSubscriber = message.GoChannelSubscribers(pubSub)
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	engine := report.NewEngine(cfg.PlatformFeeRate)
	var summarizer ledger.Summarizer = engine
	if deps.Redis != nil {
		summarizer = report.NewCachedEngine(engine, deps.Redis, cfg.SummaryCacheTTL, monitor)
	}

	l := ledger.New(ledger.Deps{
		Store:      store,
		Recorder:   audit.NewRecorder(auditLog, monitor),
		AuditLog:   auditLog,
		Summarizer: summarizer,
		Monitor:    monitor,
	}, ledger.Config{
		Precedence:       cfg.Precedence,
		OperationTimeout: cfg.OperationTimeout,
		MaxAttempts:      cfg.MaxAttempts,
	})

	publish := deps.Publish
	if publish == nil {
		publish = clients.LogPublisher()
	}
	notifications := clients.NewNotificationsClient(publish, monitor)

	msgRouter, err := message.NewRouter(message.RouterDeps{
		CommandHandler: command.NewHandler(l),
		EventHandler:   event.NewHandler(notifications),
		Logger:         logger,
		NewSubscriber:  newSubscriber,
		Publisher:      publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("creating message router: %w", err)
	}

	commandBus, err := command.NewBus(publisher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating command bus: %w", err)
	}

	httpRouter := http.NewRouter(l, commandBus)

	return &Service{
		addr:       cfg.HTTPAddr,
		dbConn:     deps.DB,
		msgRouter:  msgRouter,
		forwarder:  fwd,
		httpRouter: httpRouter,
	}, nil
}

func (s Service) Run(ctx context.Context) error {
	if s.dbConn != nil {
		if err := db.InitialiseDB(ctx, s.dbConn); err != nil {
			return fmt.Errorf("initialising db: %w", err)
		}
	}

	g, runCtx := errgroup.WithContext(ctx)

	if s.forwarder != nil {
		g.Go(func() error {
			if err := s.forwarder.Run(runCtx); err != nil {
				return fmt.Errorf("running forwarder: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		if err := s.msgRouter.Run(runCtx); err != nil {
			return fmt.Errorf("running messaging router: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		// Wait for message router
		<-s.msgRouter.Running()

		logrus.WithField("addr", s.addr).Info("Starting HTTP server...")
		err := s.httpRouter.Start(s.addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logrus.Info("Shutting down HTTP server...")
		if err := s.httpRouter.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for shutdown: %w", err)
	}
	logrus.Info("Shutdown complete.")

	return nil
}
