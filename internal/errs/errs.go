// Package errs provides the typed error kinds used across the session
// bridge, the carrier/calendar REST clients, and the campaign dispatcher.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and handling decisions.
type Kind string

const (
	KindTransientNetwork  Kind = "transient_network"
	KindAuthentication    Kind = "authentication"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindTimeout           Kind = "timeout"
	KindCarrierDisconnect Kind = "carrier_disconnect"
	KindProviderDisconnect Kind = "provider_disconnect"
	KindRateLimited       Kind = "rate_limited"
)

// Error wraps an underlying cause with a Kind, so callers can branch on
// errors.Is/errors.As without string matching.
type Error struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "carrier.answer_call"
	Err     error
	RetryAfterSeconds int // populated for KindRateLimited when the server told us
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new typed error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the error's kind is worth retrying.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTransientNetwork, KindTimeout, KindRateLimited:
		return true
	default:
		return false
	}
}
