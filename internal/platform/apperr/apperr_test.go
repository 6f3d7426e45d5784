package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("appointment", "a1"), http.StatusNotFound},
		{Invalid("bad date %q", "2025-13-40"), http.StatusBadRequest},
		{ErrSlotUnavailable, http.StatusConflict},
		{Transition("completed", "pending"), http.StatusConflict},
		{ErrStillUnavailable, http.StatusConflict},
		{ErrPermissionDenied, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	err := fmt.Errorf("create appointment: %w", NotFound("doctor", "d1"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrapped NotFound should match ErrNotFound")
	}
}

func TestToHTTPHidesInternalDetail(t *testing.T) {
	he := ToHTTP(errors.New("pq: connection refused"))
	if he.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", he.Code)
	}
	if he.Message != "internal error" {
		t.Fatalf("internal errors must not leak detail, got %v", he.Message)
	}
}
