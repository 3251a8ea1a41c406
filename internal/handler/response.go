package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON / writeError so the browser
// sees one error shape:
//
//	{"error": "validation_error", "message": "title is required"}
//
// Messages from the remote API are passed through untouched; that text is
// what the user needs to see ("You already liked this resource").

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/resourcehub/internal/apperror"
)

// maxBodyBytes caps request bodies from the browser.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "unauthenticated"
	Message string `json:"message"` // human-readable, safe to display
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err to a status with apperror.HTTPStatus and writes it.
// Errors that aren't *apperror.AppError are reported as a generic 500 so
// local paths or SQL never reach the page.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	writeJSON(w, apperror.HTTPStatus(err), ErrorResponse{
		Error:   errorKind(err),
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrNotConfirmed):
		return "not_confirmed"
	case errors.Is(err, apperror.ErrInFlight):
		return "in_flight"
	case errors.Is(err, apperror.ErrConflict):
		return "conflict"
	case errors.Is(err, apperror.ErrTransport):
		return "transport_error"
	case errors.Is(err, apperror.ErrRemote):
		return "remote_error"
	}
	return "internal_error"
}

// decodeJSON reads a JSON body into dst. Malformed input is a validation
// error, not a 500.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON in request body")
	}
	return nil
}

// idParam parses a positive integer path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return id, nil
}

// userMessage is the text of err that is safe to show on a page.
func userMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}
