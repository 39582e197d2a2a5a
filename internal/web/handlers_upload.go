package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/fileintake/internal/core"
)

// handleUpload stores the single multipart file in field "file".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMultipart(w, r, 1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer form.RemoveAll()

	inputs, closeAll, err := openParts(form.File["file"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeAll()

	file, err := singleInput(inputs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	uploaded, err := s.service.UploadOne(r.Context(), file, core.OwnerFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, "File uploaded successfully", uploaded)
}

// handleUploadBatch stores every multipart file in field "files" as one
// all-or-nothing batch.
func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMultipart(w, r, s.service.Policy().MaxFiles())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer form.RemoveAll()

	inputs, closeAll, err := openParts(form.File["files"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeAll()

	uploaded, err := s.service.UploadMany(r.Context(), inputs, core.OwnerFromContext(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, fmt.Sprintf("%d files uploaded successfully", len(uploaded)), uploaded)
}

// parseMultipart bounds the request body and parses the form. The bound
// leaves room for one file more than maxFiles, so a request that is over the
// count but not the per-file size is still parsed and reported as
// core.ErrTooManyFiles. Oversized bodies fail with core.ErrTooLarge, anything
// that is not a multipart form with core.ErrNoFileProvided.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, maxFiles int) (*multipart.Form, error) {
	limit := int64(maxFiles+1)*s.service.Policy().MaxFileSize() + multipartSlack
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("request body over %d bytes: %w", tooBig.Limit, core.ErrTooLarge)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNoFileProvided, err)
	}
	return r.MultipartForm, nil
}

// singleInput returns the one file a single-file route accepts, or nil when
// none was sent. Extra parts fail with core.ErrTooManyFiles instead of being
// dropped.
func singleInput(inputs []core.FileInput) (*core.FileInput, error) {
	switch len(inputs) {
	case 0:
		return nil, nil
	case 1:
		return &inputs[0], nil
	default:
		return nil, fmt.Errorf("%w: got %d, this route takes one file", core.ErrTooManyFiles, len(inputs))
	}
}

// openParts opens every file header. The returned func closes them all.
func openParts(headers []*multipart.FileHeader) ([]core.FileInput, func(), error) {
	inputs := make([]core.FileInput, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		files = append(files, f)
		inputs = append(inputs, core.FileInput{
			Name:     h.Filename,
			MimeType: h.Header.Get("Content-Type"),
			Size:     h.Size,
			Reader:   f,
		})
	}
	return inputs, closeAll, nil
}
