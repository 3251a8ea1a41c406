// Package apperror defines the error taxonomy shared by every layer of the
// client: the remote API wrapper, the view services, and both front ends.
//
// ERROR KINDS:
// The client distinguishes four kinds of failure, and every one of them is
// caught at the action boundary and turned into a user-visible message:
//
//	ErrTransport        the request never got an HTTP response
//	ErrRemote           the API answered outside the 2xx range
//	ErrValidation       a required field was empty (never reaches the network)
//	ErrUnauthenticated  the action needs an identity we don't have
//
// The remaining sentinels cover local view rules (in-flight toggles,
// declined confirmations, lookups in local lists).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRemote          = errors.New("remote error")
	ErrTransport       = errors.New("transport error")
	ErrNotConfirmed    = errors.New("not confirmed")
	ErrInFlight        = errors.New("in flight")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Status  int    // Optional: HTTP status reported by the remote API
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict is an action the target's current state does not allow, such
// as acting on a view that is closed or not yet loaded.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is the missing-identity precondition failure. It is
// always produced before any network call is made.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Remote wraps a non-success HTTP response. The message is the response
// body text, or "HTTP <status>" when the body is empty.
func Remote(status int, body string) *AppError {
	msg := body
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &AppError{
		Err:     ErrRemote,
		Message: msg,
		Status:  status,
	}
}

// Transport wraps a failure that happened before any HTTP status was seen.
func Transport(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransport, err),
		Message: fmt.Sprintf("network error: %v", err),
	}
}

func NotConfirmed(message string) *AppError {
	return &AppError{
		Err:     ErrNotConfirmed,
		Message: message,
	}
}

func InFlight(message string) *AppError {
	return &AppError{
		Err:     ErrInFlight,
		Message: message,
	}
}

// HTTPStatus maps an error to the status the local web front answers with.
// Remote failures keep the status the API reported.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotConfirmed), errors.Is(err, ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, ErrRemote):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
