package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// toJSON serializes v as the response body. An encode failure at this point
// means the client went away mid-write; it is logged at debug and dropped.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "status", status, "error", err.Error())
	}
}
