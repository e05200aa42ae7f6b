package storefront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gustavop-dev/rainy-project/internal/platform/observability"
	"github.com/gustavop-dev/rainy-project/internal/platform/requestctx"
)

// Error is the JSON error envelope returned by the storefront.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError constructs an Error; a zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: code, Message: message, Status: status}
}

// WriteError writes err as JSON, tagging it with the request id when one is known.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"error":   err.Code,
		"message": observability.SanitizeBody([]byte(err.Message)),
		"status":  status,
	}
	if id := requestctx.RequestID(ctx); id != "" {
		payload["request_id"] = id
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
