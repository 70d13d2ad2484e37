// Package ledger runs booking, trip and dispute commands against a store.
// Every mutation is loaded fresh, checked by the entity state machines and
// written back under an optimistic version check; conflicts are retried a
// bounded number of times.
package ledger

import (
	"context"
	"errors"
	"settlement/entity"
	"settlement/monitoring"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
)

type Store interface {
	CreateTrip(ctx context.Context, trip entity.Trip, events []any) error
	GetTrip(ctx context.Context, tripID string) (entity.Trip, error)

	// CreateBooking inserts b and reserves its passengers on the trip in one
	// atomic step.
	CreateBooking(ctx context.Context, b entity.Booking, events []any) error
	GetBooking(ctx context.Context, bookingID string) (entity.Booking, error)
	ListBookings(ctx context.Context, filter entity.BookingFilter) ([]entity.Booking, error)
	UpdateBooking(ctx context.Context, change entity.BookingChange, events []any) error

	CreateDispute(ctx context.Context, d entity.Dispute, events []any) error
	GetDispute(ctx context.Context, disputeID string) (entity.Dispute, error)
	ListDisputes(ctx context.Context, bookingID string) ([]entity.Dispute, error)
	UpdateDispute(ctx context.Context, change entity.DisputeChange, events []any) error
}

type AuditRecorder interface {
	Record(
		ctx context.Context,
		actor string,
		action entity.Action,
		entityType entity.EntityType,
		entityID string,
		changes []entity.FieldChange,
	) error
}

type AuditLog interface {
	ListAuditEntries(ctx context.Context, entityType entity.EntityType, entityID string) ([]entity.AuditEntry, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, campaignID string, bookings []entity.Booking, w entity.Window) (entity.FinancialSummary, error)
	SummarizeByCampaign(ctx context.Context, bookings []entity.Booking, w entity.Window) (entity.PlatformSummary, error)
}

type Deps struct {
	Store      Store
	Recorder   AuditRecorder
	AuditLog   AuditLog
	Summarizer Summarizer
	Monitor    *monitoring.Monitor
}

type Config struct {
	Precedence       entity.Precedence
	OperationTimeout time.Duration
	MaxAttempts      int
}

// Meta travels with every command.
type Meta struct {
	Actor          string
	IdempotencyKey string
}

type Ledger struct {
	store       Store
	recorder    AuditRecorder
	auditLog    AuditLog
	summarizer  Summarizer
	monitor     *monitoring.Monitor
	lifecycle   entity.Lifecycle
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time
}

func New(deps Deps, cfg Config) *Ledger {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Ledger{
		store:       deps.Store,
		recorder:    deps.Recorder,
		auditLog:    deps.AuditLog,
		summarizer:  deps.Summarizer,
		monitor:     deps.Monitor,
		lifecycle:   entity.NewLifecycle(cfg.Precedence),
		timeout:     cfg.OperationTimeout,
		maxAttempts: cfg.MaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// run bounds fn by the operation timeout unless the caller brought its own
// deadline, and turns infrastructure failures into DependencyUnavailable.
func run[T any](l *Ledger, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	res, err := fn(ctx)
	if err != nil {
		err = classify(ctx, op, err)
		l.monitor.TrackOperation(op, string(entity.KindOf(err)))
		var zero T
		return zero, err
	}

	l.monitor.TrackOperation(op, "ok")
	return res, nil
}

func classify(ctx context.Context, op string, err error) error {
	switch {
	case entity.KindOf(err) != "":
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return entity.Wrap(entity.KindDependencyUnavailable, op+" did not finish in time", err)
	default:
		return entity.Wrap(entity.KindDependencyUnavailable, op, err)
	}
}

func (l *Ledger) record(
	ctx context.Context,
	actor string,
	action entity.Action,
	entityType entity.EntityType,
	entityID string,
	changes []entity.FieldChange,
) []error {
	if err := l.recorder.Record(ctx, actor, action, entityType, entityID, changes); err != nil {
		return []error{err}
	}
	return nil
}

func (l *Ledger) retryable(ctx context.Context, op string, attempt int, err error) bool {
	if !errors.Is(err, entity.ErrConcurrentModification) {
		return false
	}
	logger := log.FromContext(ctx).WithField("operation", op).WithField("attempt", attempt)
	if attempt >= l.maxAttempts {
		logger.WithError(err).Warn("Giving up after concurrent modifications")
		return false
	}
	l.monitor.TrackRetry(op)
	logger.Info("Concurrent modification, retrying with fresh state")
	return true
}

// idFor derives a stable id from the idempotency key so a retried create
// lands on the same row.
func idFor(kind entity.EntityType, given, idempotencyKey string) string {
	if given != "" {
		return given
	}
	if idempotencyKey != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(kind)+":"+idempotencyKey)).String()
	}
	return uuid.NewString()
}
