package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mohamed-Hasan-MB/ecommerce-app/internal/apperr"
	"github.com/Mohamed-Hasan-MB/ecommerce-app/pkg/logger"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// errorMapping is checked in order; the first root the error matches wins.
var errorMapping = []struct {
	kind   error
	status int
	code   string
}{
	{apperr.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{apperr.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{apperr.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperr.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperr.ErrInventoryConflict, http.StatusConflict, "insufficient_stock"},
	{apperr.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{apperr.ErrConflict, http.StatusConflict, "conflict"},
	{apperr.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
}

func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, log *logger.Logger, status int, code, message string) {
	respondJSON(w, log, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps a service error onto a status code. Errors outside
// the taxonomy are logged and answered with a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.kind) {
			respondError(w, log, m.status, m.code, err.Error())
			return
		}
	}
	log.WithContext(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	respondError(w, log, http.StatusInternalServerError, "internal_error", "internal server error")
}
