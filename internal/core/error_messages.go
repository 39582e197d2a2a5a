package core

// error_messages.go turns errors into support-friendly messages with codes.
//
// # Error Codes Reference
//
// Codes are grouped by category. Sentinel errors are matched with errors.Is
// first; anything else falls back to case-insensitive substring patterns.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - No file: no file was attached to the request
//	FILE002 - Unsupported type: the file type is not on the allow-list
//	FILE003 - File too large: the file exceeds the per-file size limit
//	FILE004 - Too many files: the batch exceeds the per-request file limit
//	FILE005 - Not found: no stored file has this id
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Not a spreadsheet: imports accept xlsx and csv only, legacy xls is refused
//	IMP002 - Unsupported import type: no validator is registered for it
//	IMP003 - Missing import type: the importType field was empty
//	IMP004 - Unreadable spreadsheet: the file could not be parsed
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Write failure: the blob store could not persist the file
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - System busy: every upload slot stayed occupied
//	UPL002 - Request cancelled
//	UPL003 - Request timeout
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB002 - Connection refused
//	DB003 - Connection reset
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the logs for
// the request id when users report ERR000.

import (
	"context"
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

// sentinelMessages is consulted before any pattern. Order matters where an
// error wraps several sentinels: a size overrun during a write wraps both
// ErrTooLarge and ErrWriteFailure and must report the former.
var sentinelMessages = []sentinelMessage{
	{ErrNoFileProvided, UserMessage{
		Message: "No file was provided",
		Action:  "Attach a file and try again",
		Code:    "FILE001",
	}},
	{ErrUnsupportedType, UserMessage{
		Message: "This file type is not allowed",
		Action:  "Upload a PDF, Office document, text file or image",
		Code:    "FILE002",
	}},
	{ErrTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Upload a smaller file",
		Code:    "FILE003",
	}},
	{ErrTooManyFiles, UserMessage{
		Message: "Too many files in one request",
		Action:  "Split the upload into smaller batches",
		Code:    "FILE004",
	}},
	{ErrNotFound, UserMessage{
		Message: "File not found",
		Action:  "Check the storage id",
		Code:    "FILE005",
	}},
	{ErrNotASpreadsheet, UserMessage{
		Message: "Imports accept spreadsheets only",
		Action:  "Upload an .xlsx or .csv file; save legacy .xls workbooks as .xlsx first",
		Code:    "IMP001",
	}},
	{ErrUnsupportedImportType, UserMessage{
		Message: "Unsupported import type",
		Action:  "Use one of the types listed at /uploads/import/types",
		Code:    "IMP002",
	}},
	{ErrMissingImportType, UserMessage{
		Message: "Import type is required",
		Action:  "Set the importType field",
		Code:    "IMP003",
	}},
	{ErrUnreadableSpreadsheet, UserMessage{
		Message: "The spreadsheet could not be read",
		Action:  "Re-save the file as .xlsx or UTF-8 .csv and try again",
		Code:    "IMP004",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL003",
	}},
	{ErrWriteFailure, UserMessage{
		Message: "The file could not be stored",
		Action:  "Please try again in a few moments",
		Code:    "STO001",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors from drivers and libraries that expose no
// sentinel. The first matching pattern wins.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Review the file for duplicate rows",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("report.pdf: %w", ErrTooLarge))
//	// msg.Code == "FILE003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
