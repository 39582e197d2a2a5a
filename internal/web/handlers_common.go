package web

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/fileintake/internal/core"
)

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status      string                   `json:"status"`
	Storage     string                   `json:"storage"`
	Uploads     core.UploadLimiterStatus `json:"uploads"`
	MaxFileSize string                   `json:"maxFileSize"`
	MaxFiles    int                      `json:"maxFiles"`
}

// handleHealth reports liveness plus the upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	policy := s.service.Policy()
	respondOK(w, "ok", HealthResponse{
		Status:      "ok",
		Storage:     s.cfg.Storage.Backend,
		Uploads:     s.service.UploadLimiterStatus(),
		MaxFileSize: humanize.IBytes(uint64(policy.MaxFileSize())),
		MaxFiles:    policy.MaxFiles(),
	})
}
