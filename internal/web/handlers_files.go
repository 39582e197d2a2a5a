package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fileintake/internal/logging"
)

// handleServeFile streams a stored blob. If the client goes away the copy
// ends on the failed write to w.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	storageID := chi.URLParam(r, "storageId")

	dl, err := s.service.Open(r.Context(), storageID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, max-age=0, must-revalidate")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if n, err := io.Copy(w, dl.Body); err != nil {
		// Headers are sent; all that is left is to record the short write.
		logging.FromContext(r.Context()).Warn("file stream interrupted",
			"storage_id", storageID,
			"written", n,
			"size", dl.Size,
			"error", err,
		)
	}
}

// handleFileInfo returns the metadata recorded for a stored blob.
func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.File(r.Context(), chi.URLParam(r, "storageId"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, "File found", meta)
}

// handleDeleteFile removes a stored blob and its metadata.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	storageID := chi.URLParam(r, "storageId")

	if err := s.service.Delete(r.Context(), storageID); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, "File deleted successfully", map[string]string{"filename": storageID})
}
