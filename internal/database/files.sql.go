package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// UploadedFileRow mirrors one row of uploaded_files.
type UploadedFileRow struct {
	StorageID    string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	OwnerID      string
	UploadedAt   pgtype.Timestamptz
	AccessUrl    string
}

const insertUploadedFile = `-- name: InsertUploadedFile :exec
INSERT INTO uploaded_files (storage_id, original_name, mime_type, size_bytes, owner_id, uploaded_at, access_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) InsertUploadedFile(ctx context.Context, arg UploadedFileRow) error {
	_, err := q.db.Exec(ctx, insertUploadedFile,
		arg.StorageID,
		arg.OriginalName,
		arg.MimeType,
		arg.SizeBytes,
		arg.OwnerID,
		arg.UploadedAt,
		arg.AccessUrl,
	)
	return err
}

const getUploadedFile = `-- name: GetUploadedFile :one
SELECT storage_id, original_name, mime_type, size_bytes, owner_id, uploaded_at, access_url
FROM uploaded_files
WHERE storage_id = $1
`

func (q *Queries) GetUploadedFile(ctx context.Context, storageID string) (UploadedFileRow, error) {
	row := q.db.QueryRow(ctx, getUploadedFile, storageID)
	var i UploadedFileRow
	err := row.Scan(
		&i.StorageID,
		&i.OriginalName,
		&i.MimeType,
		&i.SizeBytes,
		&i.OwnerID,
		&i.UploadedAt,
		&i.AccessUrl,
	)
	return i, err
}

const uploadedFileExists = `-- name: UploadedFileExists :one
SELECT EXISTS (SELECT 1 FROM uploaded_files WHERE storage_id = $1)
`

func (q *Queries) UploadedFileExists(ctx context.Context, storageID string) (bool, error) {
	row := q.db.QueryRow(ctx, uploadedFileExists, storageID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const deleteUploadedFile = `-- name: DeleteUploadedFile :execrows
DELETE FROM uploaded_files WHERE storage_id = $1
`

func (q *Queries) DeleteUploadedFile(ctx context.Context, storageID string) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUploadedFile, storageID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
