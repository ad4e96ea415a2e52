package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cashpoint/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorResponse{Error: reason})
}

// writeOperationError maps core errors onto the HTTP surface:
// user-recoverable rejections become 422 with the typed reason, store
// failures a generic 500.
func writeOperationError(w http.ResponseWriter, err error) {
	var serr *core.StorageError
	if errors.As(err, &serr) {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	for _, rejection := range []error{
		core.ErrInvalidAmount,
		core.ErrInsufficientFunds,
		core.ErrInsufficientCredit,
		core.ErrInvalidType,
		core.ErrUnknownService,
		core.ErrUnknownProvider,
		core.ErrInvalidDate,
		core.ErrInvalidCount,
	} {
		if errors.Is(err, rejection) {
			writeError(w, http.StatusUnprocessableEntity, rejection.Error())
			return
		}
	}

	// Validation errors without a sentinel (empty phone, empty
	// reference) are still user-recoverable.
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}
