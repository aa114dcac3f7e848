package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind is the category of a classified error.
type Kind string

const (
	KindCircuitBreaker Kind = "circuit_breaker"
	KindStateConflict  Kind = "state_conflict"
	KindNetwork        Kind = "network"
	KindValidation     Kind = "validation"
	KindAuth           Kind = "auth"
	KindRateLimited    Kind = "rate_limited"
	KindNotFound       Kind = "not_found"
	KindUnknown        Kind = "unknown"
)

// DefaultCircuitBreakerRetryAfter is used when a 503 carries no Retry-After.
const DefaultCircuitBreakerRetryAfter = 60

// Error is a classified REST failure. Values are immutable once returned.
type Error struct {
	Kind        Kind
	Retryable   bool
	UserMessage string

	// RetryAfterSeconds is only meaningful when HasRetryAfter is set.
	RetryAfterSeconds int
	HasRetryAfter     bool

	StatusCode int    // 0 when no response was received
	RawMessage string // server message or error text
	Cause      error  // underlying transport error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.Kind, e.StatusCode, e.UserMessage, e.Cause)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.UserMessage)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &apierror.Error{Kind: apierror.KindAuth}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// FromError classifies an arbitrary error. An *Error anywhere in the chain is
// returned unchanged; anything else is treated as "no response received".
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	e := Classify(0, nil, nil)
	e.Cause = err
	e.RawMessage = err.Error()

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		e.UserMessage = "The server took too long to respond. Please try again."
	case errors.Is(err, context.Canceled):
		e.Retryable = false
		e.UserMessage = "The request was cancelled."
	}

	return e
}

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a classified retryable failure.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// StatusText is a convenience for logging.
func StatusText(status int) string {
	if status == 0 {
		return "no response"
	}
	return http.StatusText(status)
}
