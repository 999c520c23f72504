package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfUnwrapsDomainError(t *testing.T) {
	err := New(KindNotFound, "person not found")
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("got %q, want %q", got, KindNotFound)
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("expected KindOf to unwrap through fmt.Errorf, got %q", got)
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("got %q, want %q for a plain error", got, KindInternal)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, "open source", cause)

	if got := err.Error(); got != "open source: connection refused" {
		t.Errorf("got %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through Unwrap to the cause")
	}
}

func TestHTTPStatusCoversEveryKind(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:          http.StatusBadRequest,
		KindInvalidImage:        http.StatusBadRequest,
		KindUnauthenticated:     http.StatusUnauthorized,
		KindPermissionDenied:    http.StatusForbidden,
		KindNotFound:            http.StatusNotFound,
		KindPersonNotFound:      http.StatusNotFound,
		KindConflict:            http.StatusConflict,
		KindPersonAlreadyExists: http.StatusConflict,
		KindNoFace:              http.StatusUnprocessableEntity,
		KindSourceOpenFailed:    http.StatusUnprocessableEntity,
		KindFrameUnavailable:    http.StatusUnprocessableEntity,
		KindNotImplemented:      http.StatusNotImplemented,
		KindDuplicateSuppressed: http.StatusInternalServerError,
		KindInternal:            http.StatusInternalServerError,
	}

	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", kind, got, want)
		}
	}
}

func TestStatusUnknownKindDefaultsToInternal(t *testing.T) {
	if got := Status(Kind("made_up")); got != "internal" {
		t.Errorf("got %q, want internal", got)
	}
	if got := HTTPStatus(Kind("made_up")); got != http.StatusInternalServerError {
		t.Errorf("got %d, want %d", got, http.StatusInternalServerError)
	}
}
