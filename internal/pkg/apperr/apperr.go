// Package apperr defines the domain error kinds that callers must be able to
// tell apart from a generic failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a domain error.
type Kind string

// Error kinds. The string values double as wire codes.
const (
	KindUnauthenticated      Kind = "unauthenticated"
	KindUnauthorized         Kind = "unauthorized"
	KindInsufficientTrophies Kind = "insufficient_trophies"
	KindRateLimited          Kind = "rate_limited"
	KindInvalid              Kind = "invalid"
	KindNotFound             Kind = "not_found"
	KindTransient            Kind = "transient"
)

// Messages clients have historically matched on.
const (
	MsgNotEnoughTrophies = "Not enough trophies"
	MsgSpinNotReady      = "Wheel cannot be spun yet"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind, keeping it in the chain.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized is returned when a non-admin calls an admin-only operation.
func Unauthorized(op string) *Error {
	return New(KindUnauthorized, "Unauthorized: only admins can %s", op)
}

// InsufficientTrophies is returned when a spend exceeds the balance.
func InsufficientTrophies(balance, cost int64) *Error {
	return New(KindInsufficientTrophies, "%s: have %d, need %d", MsgNotEnoughTrophies, balance, cost)
}

// SpinNotReady is returned when the spin cooldown has not elapsed.
func SpinNotReady(remainingMs int64) *Error {
	return New(KindRateLimited, "%s: %d seconds remaining", MsgSpinNotReady, (remainingMs+999)/1000)
}

// KindOf returns the kind of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to an HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindInsufficientTrophies:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FromWire rebuilds an error from a wire code and message.
// Unknown or empty codes fall back to the legacy message substrings.
func FromWire(code, message string) *Error {
	kind := Kind(code)
	switch kind {
	case KindUnauthenticated, KindUnauthorized, KindInsufficientTrophies,
		KindRateLimited, KindInvalid, KindNotFound, KindTransient:
	default:
		switch {
		case strings.Contains(message, MsgNotEnoughTrophies):
			kind = KindInsufficientTrophies
		case strings.Contains(message, "cannot be spun yet"):
			kind = KindRateLimited
		case strings.Contains(message, "Unauthorized"):
			kind = KindUnauthorized
		default:
			kind = KindTransient
		}
	}
	return &Error{Kind: kind, Message: message}
}
