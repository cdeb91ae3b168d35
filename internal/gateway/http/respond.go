package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_bookstore/internal/backend"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// handleBackendError converts backend client errors to HTTP responses.
func handleBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, backend.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, backend.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "backend is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "backend timed out")
	case errors.As(err, &apiErr):
		respondErrorDetails(w, http.StatusBadGateway, "backend_error", "backend request failed", apiErr.Body)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
