// Package apperr defines the sentinel error kinds surfaced by the
// recognition service facade and maps them to control-surface status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is one of the error kinds enumerated in the facade's error taxonomy.
type Kind string

const (
	KindSourceOpenFailed      Kind = "source_open_failed"
	KindFrameUnavailable      Kind = "frame_unavailable"
	KindNoFace                Kind = "no_face"
	KindInvalidImage          Kind = "invalid_image"
	KindPersonNotFound        Kind = "person_not_found"
	KindPersonAlreadyExists   Kind = "person_already_exists"
	KindDuplicateSuppressed   Kind = "duplicate_suppressed"
	KindPermissionDenied      Kind = "permission_denied"
	KindUnauthenticated       Kind = "unauthenticated"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindBadRequest            Kind = "bad_request"
	KindNotImplemented        Kind = "not_implemented"
	KindInternal              Kind = "internal"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to KindInternal otherwise — any error escaping the domain layers without
// an explicit kind is an invariant violation per the error handling design.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a Kind to the facade's operational-status vocabulary:
// ok, bad_request, unauthorized, forbidden, not_found, conflict,
// unprocessable, internal, not_implemented.
func Status(kind Kind) string {
	switch kind {
	case KindBadRequest, KindInvalidImage:
		return "bad_request"
	case KindUnauthenticated:
		return "unauthorized"
	case KindPermissionDenied:
		return "forbidden"
	case KindNotFound, KindPersonNotFound:
		return "not_found"
	case KindConflict, KindPersonAlreadyExists:
		return "conflict"
	case KindNoFace, KindSourceOpenFailed, KindFrameUnavailable:
		return "unprocessable"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "internal"
	}
}

// HTTPStatus maps a Kind to the HTTP status code the gin handlers respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest, KindInvalidImage:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound, KindPersonNotFound:
		return http.StatusNotFound
	case KindConflict, KindPersonAlreadyExists:
		return http.StatusConflict
	case KindNoFace, KindSourceOpenFailed, KindFrameUnavailable:
		return http.StatusUnprocessableEntity
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
