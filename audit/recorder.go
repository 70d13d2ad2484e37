package audit

import (
	"context"
	"fmt"
	"settlement/entity"
	"settlement/monitoring"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
)

// Sink stores audit entries. It offers no update or delete.
type Sink interface {
	AppendAuditEntry(ctx context.Context, entry entity.AuditEntry) error
}

type Recorder struct {
	sink    Sink
	monitor *monitoring.Monitor
	now     func() time.Time
}

func NewRecorder(sink Sink, monitor *monitoring.Monitor) *Recorder {
	return &Recorder{
		sink:    sink,
		monitor: monitor,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one entry. A failed write comes back as an
// entity.ErrAuditWriteFailed error meant to be reported as a warning next to
// the mutation's result, never as its failure.
func (r *Recorder) Record(
	ctx context.Context,
	actor string,
	action entity.Action,
	entityType entity.EntityType,
	entityID string,
	changes []entity.FieldChange,
) error {
	entry := entity.AuditEntry{
		EntryID:    uuid.NewString(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		RecordedAt: r.now(),
	}

	if err := r.sink.AppendAuditEntry(ctx, entry); err != nil {
		r.monitor.TrackAuditFailure(string(action))
		log.FromContext(ctx).
			WithError(err).
			WithField("action", action).
			WithField("entity_id", entityID).
			Warn("Audit entry not written")

		return entity.Wrap(entity.KindAuditWriteFailed, fmt.Sprintf("recording %s for %s %s", action, entityType, entityID), err)
	}

	return nil
}
