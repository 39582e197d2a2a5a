package core

import (
	"context"
	"io"
	"time"

	"github.com/JonMunkholm/fileintake/internal/importer"
)

// UploadedFile is the metadata recorded for one stored blob. It is created
// once the blob is persisted and never modified afterwards.
type UploadedFile struct {
	StorageID    string    `json:"storageId"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	OwnerID      string    `json:"ownerId"`
	UploadedAt   time.Time `json:"uploadedAt"`
	AccessURL    string    `json:"accessUrl"`
}

// FileInput is one file as received from the client. Size is the declared
// length, or -1 when unknown; the stored length is measured while writing.
type FileInput struct {
	Name     string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// Download is an open blob ready to be streamed. Body must be closed.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	StorageID   string
}

// FileRepository persists UploadedFile metadata. Get and Delete return
// ErrNotFound for unknown ids.
type FileRepository interface {
	Insert(ctx context.Context, f UploadedFile) error
	Get(ctx context.Context, storageID string) (UploadedFile, error)
	Exists(ctx context.Context, storageID string) (bool, error)
	Delete(ctx context.Context, storageID string) error
}

// RecordSink receives the records accepted by an import.
type RecordSink interface {
	SaveRecords(ctx context.Context, importType string, records []importer.RowRecord) error
}

// DiscardRecords is the RecordSink used when no database is configured.
type DiscardRecords struct{}

func (DiscardRecords) SaveRecords(context.Context, string, []importer.RowRecord) error { return nil }
