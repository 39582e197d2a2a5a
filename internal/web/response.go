package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Action    string `json:"action,omitempty"`
	Timestamp string `json:"timestamp"`
}

// now is the clock used for envelope timestamps.
var now = time.Now

func timestamp() string {
	return now().UTC().Format(time.RFC3339)
}

// respondOK writes a 200 success envelope.
func respondOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: timestamp(),
	})
}

// respondFailure writes a failure envelope with the given status.
func respondFailure(w http.ResponseWriter, status int, message, detail, code string) {
	writeJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Error:     detail,
		Code:      code,
		Timestamp: timestamp(),
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
