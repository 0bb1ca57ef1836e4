package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"account-backoffice-go/internal/api"
	"account-backoffice-go/internal/auth"
	"account-backoffice-go/internal/store"

	"go.uber.org/zap"
)

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError maps sentinel errors onto HTTP statuses. Anything unrecognized
// is logged and reported as an internal error without leaking details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrInsufficientFunds),
		errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInvalidOperationState),
		errors.Is(err, store.ErrConcurrentModification):
		status = http.StatusBadRequest
	case errors.Is(err, api.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, api.ErrAccountBlocked):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	default:
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Message: err.Error()})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return store.ErrValidation
	}
	return nil
}
