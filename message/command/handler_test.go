package command_test

import (
	"context"
	"errors"
	commands "settlement/command"
	"settlement/entity"
	"settlement/ledger"
	"settlement/message/command"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerMock implements command.Ledger. Only the methods under test record
// calls; the rest succeed.
type ledgerMock struct {
	command.Ledger
	err      error
	warnings []error
	meta     ledger.Meta
	refund   *entity.Money
}

func (l *ledgerMock) CancelBooking(ctx context.Context, bookingID, reason string, refund *entity.Money, meta ledger.Meta) (ledger.BookingResult, error) {
	l.meta = meta
	l.refund = refund
	return ledger.BookingResult{Warnings: l.warnings}, l.err
}

func (l *ledgerMock) TransitionDispute(ctx context.Context, disputeID string, t entity.DisputeTransition, meta ledger.Meta) (ledger.DisputeResult, error) {
	l.meta = meta
	return ledger.DisputeResult{Warnings: l.warnings}, l.err
}

func TestHandler_CancelBooking(t *testing.T) {
	l := &ledgerMock{}
	h := command.NewHandler(l)

	refund := entity.MustMoney("50")
	cmd := commands.NewCancelBooking("cancel-1", "ops", "b-1", "weather", &refund)

	require.NoError(t, h.CancelBooking(context.Background(), &cmd))
	assert.Equal(t, ledger.Meta{Actor: "ops", IdempotencyKey: "cancel-1"}, l.meta)
	require.NotNil(t, l.refund)
	assert.Equal(t, "50.000", l.refund.String())
}

func TestHandler_rejectedCommandsAreAcked(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "domain rejection", err: entity.InvalidAmount("too much"), wantErr: false},
		{name: "missing booking", err: entity.NotFound("booking", "b-1"), wantErr: false},
		{name: "version conflict", err: entity.ConcurrentModification("booking", "b-1"), wantErr: true},
		{name: "store down", err: entity.Wrap(entity.KindDependencyUnavailable, "cancel_booking", errors.New("conn refused")), wantErr: true},
		{name: "unclassified", err: errors.New("boom"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := command.NewHandler(&ledgerMock{err: tc.err})
			cmd := commands.NewCancelBooking("cancel-1", "ops", "b-1", "weather", nil)

			err := h.CancelBooking(context.Background(), &cmd)
			if tc.wantErr {
				assert.ErrorIs(t, err, tc.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandler_warningsDoNotFailTheMessage(t *testing.T) {
	l := &ledgerMock{warnings: []error{entity.Wrap(entity.KindAuditWriteFailed, "booking.cancelled", errors.New("disk full"))}}
	h := command.NewHandler(l)
	cmd := commands.NewTransitionDispute("t-1", "ops", "d-1", entity.DisputeUnderReview, "", entity.Money{})

	assert.NoError(t, h.TransitionDispute(context.Background(), &cmd))
	assert.Equal(t, "t-1", l.meta.IdempotencyKey)
}

func TestHandler_Handlers(t *testing.T) {
	h := command.NewHandler(&ledgerMock{})
	assert.Len(t, h.Handlers(), 11)
}
