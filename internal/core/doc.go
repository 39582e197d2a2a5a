// Package core provides the business logic of the file intake service.
//
// It is independent of HTTP: web handlers, the sweeper and tests all drive
// the same [Service].
//
// # Uploads
//
// [Service.UploadMany] accepts a batch all-or-nothing. Every file is checked
// by the [Policy] (type, then size, then batch count) before any byte is
// written. Accepted files get a fresh storage id from the [Namer], the blob
// is written to the storage.Store and then the metadata is recorded through
// the [FileRepository]. A failure part way through removes whatever this
// call already stored.
//
// Storage ids look like
//
//	1718000000000000000-0b6a2f53-7d4e-4c52-9f7e-2b1f1f5d9a10.pdf
//
// and are the only names ever used on disk or in the bucket. The client file
// name is kept in metadata as OriginalName only.
//
// # Imports
//
// [Service.Import] stages a spreadsheet in the blob store, parses the first
// sheet with the importer package, validates every data row and hands the
// accepted records to a [RecordSink]. The staged blob is deleted on every
// path. Per-row failures end up in the report; they never fail the call.
//
// # Concurrency
//
// Persistence and import work is bounded by an [UploadLimiter]. Callers that
// wait longer than the configured period get [ErrTooManyUploads]. On shutdown,
// [Service.WaitForUploads] drains the limiter.
//
// # Errors
//
// All failures are sentinel errors wrapped with %w. [IsValidationError]
// separates client mistakes from server faults and [MapError] attaches a
// support code for display.
package core
