// Package handler contains the HTTP handlers of the revision tracker API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming request (path params, query string, JSON body)
// 2. Call exactly one service method
// 3. Write the response (status code, headers, JSON body)
//
// Validation, ownership checks and persistence live in internal/service.
// A handler never talks to the repository directly.
package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError so the API has one
// error shape:
//
//	{"error": "not_found", "message": "question not found with id abc123"}
//
// Validation errors also name the offending field:
//
//	{"error": "validation_error", "message": "link is required", "field": "link"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/auth"
)

// maxJSONBody caps ordinary request bodies. Imports have their own limit.
const maxJSONBody = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
//	ErrValidation   → 400
//	ErrMalformed    → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//
// Anything else is a 500 with a generic message; internal details such as
// SQL or file paths never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, errorType := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrMalformed):
		status, errorType = http.StatusBadRequest, "malformed_import"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, errorType = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a JSON body of at most maxJSONBody bytes into dst.
// Problems come back as validation errors so writeError renders a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or less", maxJSONBody))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		default:
			return apperror.ValidationFailed("body", "request body must be valid JSON")
		}
	}
	return nil
}

// requireUser returns the user ID RequireAuth stored in the context. It only
// fails when a route was mounted without the middleware.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return "", false
	}
	return userID, true
}

// isDomainError reports whether err carries an *apperror.AppError.
func isDomainError(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr)
}
