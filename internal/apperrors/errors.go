package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the engine can surface, so callers handle
// each mode explicitly instead of relying on a generic 500.
type Kind int

const (
	KindConfiguration Kind = iota + 1 // rule/event/attribute misconfiguration
	KindImbalance                     // sum(debits) != sum(credits)
	KindDuplicate                     // transaction reference already posted
	KindConflict                      // balance-row conflict, retries exhausted
	KindStorage                       // commit failure, posting rolled back
	KindNotFound
	KindAlreadyReversed
	KindValidation
)

// Error carries a Kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindStorage when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCode maps an error kind to the HTTP-style code used in the result
// envelope. Transport-agnostic: the same codes ride on any carrier.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindConfiguration, KindValidation, KindImbalance:
		return 400
	case KindNotFound:
		return 404
	case KindDuplicate, KindAlreadyReversed:
		return 409
	case KindConflict:
		return 503
	default:
		return 500
	}
}
