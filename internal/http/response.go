package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeServiceError maps service sentinels onto the API's status codes and
// messages. Anything unmapped is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid amount")
	case errors.Is(err, core.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "Invalid transaction type")
	case errors.Is(err, core.ErrEmptyCategory):
		writeError(w, http.StatusBadRequest, "Category is required")
	case errors.Is(err, core.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, core.ErrNotOwner):
		writeError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, core.ErrSummaryMissing):
		writeError(w, http.StatusBadRequest, "Summary not found")
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
