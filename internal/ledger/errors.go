package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies why a ledger operation was rejected. Callers decide
// whether to retry based on the kind; the ledger never retries itself.
type Kind string

const (
	KindNotFound            Kind = "NotFound"
	KindUnauthorized        Kind = "Unauthorized"
	KindInvalidState        Kind = "InvalidState"
	KindInsufficientValue   Kind = "InsufficientValue"
	KindOverFunded          Kind = "OverFunded"
	KindTransferFailed      Kind = "TransferFailed"
	KindInvalidArgument     Kind = "InvalidArgument"
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindLimitExceeded       Kind = "LimitExceeded"
)

// Error is returned by every rejected operation. Nothing has been
// written when an Error comes back.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Reason
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of the reason text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInsufficientValue   = &Error{Kind: KindInsufficientValue}
	ErrOverFunded          = &Error{Kind: KindOverFunded}
	ErrTransferFailed      = &Error{Kind: KindTransferFailed}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrLimitExceeded       = &Error{Kind: KindLimitExceeded}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a ledger error, or "" for anything else
// (storage failures, context cancellation).
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
