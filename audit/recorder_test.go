package audit_test

import (
	"context"
	"errors"
	"settlement/audit"
	"settlement/entity"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkMock struct {
	lock    sync.Mutex
	entries []entity.AuditEntry
	err     error
}

func (s *sinkMock) AppendAuditEntry(ctx context.Context, entry entity.AuditEntry) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecorder_Record(t *testing.T) {
	sink := &sinkMock{}
	r := audit.NewRecorder(sink, nil)

	changes := []entity.FieldChange{{Field: "status", Before: "pending_payment", After: "partially_paid"}}
	err := r.Record(context.Background(), "staff-1", entity.ActionPaymentRecorded, entity.EntityBooking, "b-1", changes)
	require.NoError(t, err)

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.NotEmpty(t, e.EntryID)
	assert.Equal(t, "staff-1", e.Actor)
	assert.Equal(t, entity.ActionPaymentRecorded, e.Action)
	assert.Equal(t, entity.EntityBooking, e.EntityType)
	assert.Equal(t, "b-1", e.EntityID)
	assert.Equal(t, changes, e.Changes)
	assert.False(t, e.RecordedAt.IsZero())
}

func TestRecorder_Record_sinkFailure(t *testing.T) {
	cause := errors.New("disk full")
	r := audit.NewRecorder(&sinkMock{err: cause}, nil)

	err := r.Record(context.Background(), "staff-1", entity.ActionBookingCancelled, entity.EntityBooking, "b-1", nil)

	assert.ErrorIs(t, err, entity.ErrAuditWriteFailed)
	assert.ErrorIs(t, err, cause)
	assert.False(t, entity.IsRetryable(err))
}
