// Package errors defines the domain error kinds shared by every
// service so that a repository or application service can return a
// structured result instead of a bare error, and a transport layer can
// map kind to status without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated in the error handling
// design: business failures are surfaced to callers, infrastructure
// failures are collapsed into Internal before they ever reach a
// response body.
type Kind string

const (
	KindInsufficientInventory   Kind = "INSUFFICIENT_INVENTORY"
	KindHoldNotFound            Kind = "HOLD_NOT_FOUND"
	KindOrderNotFound           Kind = "ORDER_NOT_FOUND"
	KindInvalidStateTransition  Kind = "INVALID_STATE_TRANSITION"
	KindPaymentFailed           Kind = "PAYMENT_FAILED"
	KindDuplicateIdempotencyKey Kind = "DUPLICATE_IDEMPOTENCY_KEY"
	KindInventoryUnavailable    Kind = "INVENTORY_SERVICE_UNAVAILABLE"
	KindValidation              Kind = "VALIDATION_ERROR"
	KindInternal                Kind = "INTERNAL_ERROR"
)

var httpStatusByKind = map[Kind]int{
	KindInsufficientInventory:   http.StatusConflict,
	KindHoldNotFound:            http.StatusNotFound,
	KindOrderNotFound:           http.StatusNotFound,
	KindInvalidStateTransition:  http.StatusBadRequest,
	KindPaymentFailed:           http.StatusPaymentRequired,
	KindDuplicateIdempotencyKey: http.StatusOK,
	KindInventoryUnavailable:    http.StatusServiceUnavailable,
	KindValidation:              http.StatusBadRequest,
	KindInternal:                http.StatusInternalServerError,
}

// Error is a domain error: a stable Kind plus an opaque cause that is
// safe to log but never safe to hand back to a client verbatim.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error's kind to the status code the transport
// layer should return. Unknown or infrastructure errors fall back to
// 500 so that internals never leak by omission.
func (e *Error) HTTPStatus() int {
	if status, ok := httpStatusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a caller should retry the request, per
// the retry policy: 503s and idempotent calls are retried with
// jittered backoff, business failures are not.
func (e *Error) Retryable() bool {
	return e.Kind == KindInventoryUnavailable
}

// KindOf extracts the Kind from err, treating any non-domain error as
// an opaque internal failure (KindInternal), so infrastructure failures
// are never leaked verbatim. KindInternal is not reported as Retryable.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	if err == nil {
		return ""
	}
	return KindInternal
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func Internal(cause error, message string) *Error {
	return Wrap(KindInternal, cause, message)
}
