package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sumo47/exam-prep-back/internal/apperror"
)

// ErrorResponse is the body of every non-2xx API response, e.g.
//
//	{"error": "not_found", "message": "question not found with id abc123"}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const internalMessage = "An internal error occurred"

// errorKinds maps apperror sentinels to their HTTP status and error code.
// Order matters only if an error wraps more than one sentinel.
var errorKinds = []struct {
	sentinel error
	status   int
	code     string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrUpstream, http.StatusBadGateway, "upstream_error"},
}

// writeJSON sets the content type and status, then encodes data. Headers
// are final once the status is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError translates an error from the service layer into a response.
// Only *apperror.AppError messages reach the client; anything else is logged
// and answered with a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "payload_too_large",
			Message: fmt.Sprintf("request body must be %d bytes or less", tooLarge.Limit),
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.sentinel) {
				writeJSON(w, k.status, ErrorResponse{Error: k.code, Message: appErr.Message})
				return
			}
		}
		slog.Error("unmapped application error", slog.String("error", err.Error()))
	} else {
		slog.Error("request failed", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: internalMessage,
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
//
// An empty body, malformed JSON, or trailing data after the object becomes
// an apperror.ErrValidation. Oversized bodies keep their *http.MaxBytesError
// so writeError can answer 413.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must be a single JSON object")
	}
	return nil
}
