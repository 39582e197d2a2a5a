package core

import (
	"errors"

	"github.com/JonMunkholm/fileintake/internal/importer"
	"github.com/JonMunkholm/fileintake/internal/storage"
)

// Validation errors. All of them are raised before anything is persisted.
var (
	ErrNoFileProvided    = errors.New("no file provided")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrTooLarge          = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrNotASpreadsheet   = errors.New("not a spreadsheet")
	ErrMissingImportType = errors.New("import type is required")

	ErrUnsupportedImportType = importer.ErrUnknownImportType
	ErrUnreadableSpreadsheet = importer.ErrUnreadable
)

// Storage errors, re-exported so callers need not import the storage package.
var (
	ErrNotFound     = storage.ErrNotFound
	ErrWriteFailure = storage.ErrWriteFailure
)

// IsValidationError reports whether err was caused by client input rather
// than by the server.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrNoFileProvided,
		ErrUnsupportedType,
		ErrTooLarge,
		ErrTooManyFiles,
		ErrNotASpreadsheet,
		ErrMissingImportType,
		ErrUnsupportedImportType,
		ErrUnreadableSpreadsheet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
