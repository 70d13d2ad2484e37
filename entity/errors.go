package entity

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures so callers can decide between retrying
// and surfacing the error to the user.
type Kind string

const (
	KindInvalidAmount          Kind = "invalid_amount"
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindIllegalTransition      Kind = "illegal_transition"
	KindPaymentIncomplete      Kind = "payment_incomplete"
	KindRefundRequired         Kind = "refund_required"
	KindScheduleMismatch       Kind = "schedule_mismatch"
	KindAlreadyPaid            Kind = "already_paid"
	KindResolutionRequired     Kind = "resolution_required"
	KindNotFound               Kind = "not_found"
	KindConcurrentModification Kind = "concurrent_modification"
	KindAuditWriteFailed       Kind = "audit_write_failed"
	KindDependencyUnavailable  Kind = "dependency_unavailable"
)

// Sentinels for errors.Is. Any *Error with the same kind matches.
var (
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrCapacityExceeded       = &Error{Kind: KindCapacityExceeded}
	ErrIllegalTransition      = &Error{Kind: KindIllegalTransition}
	ErrPaymentIncomplete      = &Error{Kind: KindPaymentIncomplete}
	ErrRefundRequired         = &Error{Kind: KindRefundRequired}
	ErrScheduleMismatch       = &Error{Kind: KindScheduleMismatch}
	ErrAlreadyPaid            = &Error{Kind: KindAlreadyPaid}
	ErrResolutionRequired     = &Error{Kind: KindResolutionRequired}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrAuditWriteFailed       = &Error{Kind: KindAuditWriteFailed}
	ErrDependencyUnavailable  = &Error{Kind: KindDependencyUnavailable}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" when the
// chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether the caller may retry the same command with
// fresh state.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConcurrentModification, KindDependencyUnavailable:
		return true
	default:
		return false
	}
}

func InvalidAmount(format string, args ...any) error {
	return newError(KindInvalidAmount, format, args...)
}

func IllegalTransition(from, to fmt.Stringer) error {
	return newError(KindIllegalTransition, "cannot move from %s to %s", from, to)
}

func NotFound(resource, id string) error {
	return newError(KindNotFound, "%s %s not found", resource, id)
}

func ConcurrentModification(resource, id string) error {
	return newError(KindConcurrentModification, "%s %s was modified concurrently", resource, id)
}
