package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/fileintake/internal/core"
	"github.com/JonMunkholm/fileintake/internal/importer"
	"github.com/JonMunkholm/fileintake/internal/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// FileStore keeps UploadedFile metadata in PostgreSQL.
type FileStore struct {
	q *Queries
}

// NewFileStore returns a core.FileRepository backed by db.
func NewFileStore(db DBTX) *FileStore {
	return &FileStore{q: New(db)}
}

func (s *FileStore) Insert(ctx context.Context, f core.UploadedFile) error {
	err := s.q.InsertUploadedFile(ctx, rowFromFile(f))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("insert %s: %w", f.StorageID, storage.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", f.StorageID, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, storageID string) (core.UploadedFile, error) {
	row, err := s.q.GetUploadedFile(ctx, storageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UploadedFile{}, core.ErrNotFound
	}
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("get %s: %w", storageID, err)
	}
	return fileFromRow(row), nil
}

func (s *FileStore) Exists(ctx context.Context, storageID string) (bool, error) {
	return s.q.UploadedFileExists(ctx, storageID)
}

func (s *FileStore) Delete(ctx context.Context, storageID string) error {
	n, err := s.q.DeleteUploadedFile(ctx, storageID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", storageID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func rowFromFile(f core.UploadedFile) UploadedFileRow {
	return UploadedFileRow{
		StorageID:    f.StorageID,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		SizeBytes:    f.SizeBytes,
		OwnerID:      f.OwnerID,
		UploadedAt:   pgtype.Timestamptz{Time: f.UploadedAt, Valid: !f.UploadedAt.IsZero()},
		AccessUrl:    f.AccessURL,
	}
}

func fileFromRow(r UploadedFileRow) core.UploadedFile {
	return core.UploadedFile{
		StorageID:    r.StorageID,
		OriginalName: r.OriginalName,
		MimeType:     r.MimeType,
		SizeBytes:    r.SizeBytes,
		OwnerID:      r.OwnerID,
		UploadedAt:   r.UploadedAt.Time.UTC(),
		AccessURL:    r.AccessUrl,
	}
}

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RecordStore persists accepted import records. Each call writes one batch
// inside a single transaction.
type RecordStore struct {
	db    TxBeginner
	newID func() uuid.UUID
}

// NewRecordStore returns a core.RecordSink backed by db.
func NewRecordStore(db TxBeginner) *RecordStore {
	return &RecordStore{db: db, newID: uuid.New}
}

func (s *RecordStore) SaveRecords(ctx context.Context, importType string, records []importer.RowRecord) error {
	rows, err := s.buildRows(importType, records)
	if err != nil || len(rows) == 0 {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	if err := New(s.db).WithTx(tx).InsertImportRecords(ctx, rows); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// buildRows encodes each record as JSON. RowIndex is the source data row, so
// a stored record can be matched to its line in the import report.
func (s *RecordStore) buildRows(importType string, records []importer.RowRecord) ([]ImportRecordRow, error) {
	if len(records) == 0 {
		return nil, nil
	}

	batchID := pgtype.UUID{Bytes: s.newID(), Valid: true}
	rows := make([]ImportRecordRow, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(rec.Record)
		if err != nil {
			return nil, fmt.Errorf("encode %s record from row %d: %w", importType, rec.Row, err)
		}
		rows = append(rows, ImportRecordRow{
			ID:         pgtype.UUID{Bytes: s.newID(), Valid: true},
			BatchID:    batchID,
			ImportType: importType,
			RowIndex:   int32(rec.Row),
			Payload:    payload,
		})
	}
	return rows, nil
}

// MemoryFiles is the FileRepository used when no database is configured.
// Metadata does not survive a restart.
type MemoryFiles struct {
	mu   sync.RWMutex
	rows map[string]core.UploadedFile
}

// NewMemoryFiles returns an empty in-memory repository.
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{rows: make(map[string]core.UploadedFile)}
}

func (m *MemoryFiles) Insert(_ context.Context, f core.UploadedFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[f.StorageID]; exists {
		return fmt.Errorf("insert %s: %w", f.StorageID, storage.ErrAlreadyExists)
	}
	m.rows[f.StorageID] = f
	return nil
}

func (m *MemoryFiles) Get(_ context.Context, storageID string) (core.UploadedFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.rows[storageID]
	if !ok {
		return core.UploadedFile{}, core.ErrNotFound
	}
	return f, nil
}

func (m *MemoryFiles) Exists(_ context.Context, storageID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[storageID]
	return ok, nil
}

func (m *MemoryFiles) Delete(_ context.Context, storageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[storageID]; !ok {
		return core.ErrNotFound
	}
	delete(m.rows, storageID)
	return nil
}

var (
	_ core.FileRepository = (*FileStore)(nil)
	_ core.FileRepository = (*MemoryFiles)(nil)
	_ core.RecordSink     = (*RecordStore)(nil)
)
