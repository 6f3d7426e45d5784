// Package apperr defines the error taxonomy shared by all domain services
// and the mapping from those errors to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument indicates malformed or semantically invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSlotUnavailable indicates the requested slot is full, on leave,
	// outside the schedule, or already taken.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrInvalidStateTransition indicates a lifecycle action not permitted
	// from the entity's current status.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrStillUnavailable indicates a waitlist confirmation whose target
	// slot has no remaining capacity.
	ErrStillUnavailable = errors.New("slot still unavailable")
	// ErrPermissionDenied indicates the caller may not act on this entity.
	ErrPermissionDenied = errors.New("permission denied")
)

// NotFound wraps ErrNotFound with the entity kind and identifier.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// Invalid wraps ErrInvalidArgument with a human-readable reason.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// Transition wraps ErrInvalidStateTransition with the attempted move.
func Transition(from, to string) error {
	return fmt.Errorf("cannot move from %q to %q: %w", from, to, ErrInvalidStateTransition)
}

// HTTPStatus maps a domain error to its HTTP status code. Unrecognized
// errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrStillUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a domain error into an echo.HTTPError so handlers can
// return service errors directly.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}
