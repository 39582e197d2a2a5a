package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/fileintake/internal/importer"
	"github.com/JonMunkholm/fileintake/internal/logging"
)

// unzipFactor scales the per-file limit into the decompressed size allowed
// for an xlsx workbook.
const unzipFactor = 10

// Import stages a spreadsheet, validates every data row with the validator
// registered for importType and hands accepted records to the record sink.
//
// The staged blob is deleted on every exit path. Row failures are reported
// in the returned Report and never fail the call; only an unreadable file,
// a rejected upload or an unknown type does.
func (s *Service) Import(ctx context.Context, file *FileInput, importType string) (importer.Report, error) {
	if file == nil || file.Reader == nil {
		return importer.Report{}, ErrNoFileProvided
	}
	importType = strings.TrimSpace(importType)
	if importType == "" {
		return importer.Report{}, ErrMissingImportType
	}
	def, err := importer.Lookup(importType)
	if err != nil {
		return importer.Report{}, err
	}

	mimeType, body, err := DetectMimeType(file.MimeType, file.Reader)
	if err != nil {
		return importer.Report{}, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := s.policy.AcceptImport(Candidate{Name: file.Name, MimeType: mimeType, Size: file.Size}); err != nil {
		return importer.Report{}, fmt.Errorf("%s: %w", displayName(file.Name), err)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return importer.Report{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	id := s.namer.Generate(file.Name)
	log := logging.WithFields(ctx, "import_type", def.Type, "storage_id", id)

	if _, err := s.store.Put(ctx, id, &limitedReader{r: body, limit: s.policy.MaxFileSize()}); err != nil {
		// A partial blob may have been left by a failed remote write.
		s.discardBlob(ctx, id)
		return importer.Report{}, fmt.Errorf("stage %s: %w", displayName(file.Name), err)
	}
	defer s.discardBlob(ctx, id)

	rows, err := s.parseStaged(ctx, id, importer.DetectFormat(file.Name, mimeType))
	if err != nil {
		log.Warn("import parse failed", "error", err)
		return importer.Report{}, err
	}

	result, err := importer.Run(def.Type, rows)
	if err != nil {
		return importer.Report{}, err
	}

	if len(result.Records) > 0 {
		if err := s.records.SaveRecords(ctx, def.Type, result.Records); err != nil {
			return importer.Report{}, fmt.Errorf("save %s records: %w", def.Type, err)
		}
	}

	log.Info("import completed",
		"owner_id", OwnerFromContext(ctx),
		"total_rows", result.Report.TotalRows,
		"success", result.Report.SuccessCount,
		"errors", result.Report.ErrorCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result.Report, nil
}

func (s *Service) parseStaged(ctx context.Context, id string, format importer.Format) ([]importer.Row, error) {
	rc, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer rc.Close()

	return importer.Parse(rc, format, importer.ParseOptions{
		MaxUnzipSize: s.policy.MaxFileSize() * unzipFactor,
	})
}

// ImportTypes lists the registered import types in name order.
func (s *Service) ImportTypes() []importer.Definition {
	return importer.Definitions()
}
