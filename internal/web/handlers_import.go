package web

import (
	"fmt"
	"net/http"
)

// ImportTypeResponse describes one registered import type.
type ImportTypeResponse struct {
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Columns  []string `json:"columns"`
	Required []string `json:"required"`
}

// handleImport validates the spreadsheet in field "file" against the
// import type named in field "importType" and returns the report.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
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

	report, err := s.service.Import(r.Context(), file, r.FormValue("importType"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondOK(w, fmt.Sprintf("Import completed: %d of %d rows accepted",
		report.SuccessCount, report.TotalRows), report)
}

// handleImportTypes lists the import types the service accepts.
func (s *Server) handleImportTypes(w http.ResponseWriter, r *http.Request) {
	defs := s.service.ImportTypes()
	types := make([]ImportTypeResponse, 0, len(defs))
	for _, d := range defs {
		types = append(types, ImportTypeResponse{
			Type:     d.Type,
			Label:    d.Label,
			Columns:  d.Columns,
			Required: d.Required,
		})
	}
	respondOK(w, "Import types", types)
}
