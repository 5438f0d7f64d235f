package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/doglog/doglog/internal/ctxkeys"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/service"
	"github.com/doglog/doglog/internal/validation"
)

// maxBodyBytes bounds JSON request bodies. Event batches are the largest.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		message = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func statusFor(err error) int {
	switch {
	case validation.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrGoalNotFound),
		errors.Is(err, repository.ErrGoalStepNotFound),
		errors.Is(err, repository.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNothingToUndo),
		errors.Is(err, service.ErrActivationConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrStorageNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	err := dec.Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return &validation.Error{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// NotFound is the fallback for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}
