package web

// errors.go turns service errors into HTTP responses.
//
// The flow:
//  1. A handler gets an error from the service
//  2. It calls respondError(w, r, err)
//  3. statusFor picks the status from the sentinel the error wraps
//  4. core.MapError supplies the user message and support code
//  5. The technical error is logged with the request id for correlation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/fileintake/internal/core"
	"github.com/JonMunkholm/fileintake/internal/logging"
)

// statusFor maps an error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case core.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the failure envelope for err with the status statusFor
// chooses.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	writeJSON(w, status, Envelope{
		Success:   false,
		Message:   msg.Message,
		Error:     err.Error(),
		Code:      msg.Code,
		Action:    msg.Action,
		Timestamp: timestamp(),
	})
}
