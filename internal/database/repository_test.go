package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fileintake/internal/config"
	"github.com/JonMunkholm/fileintake/internal/core"
	"github.com/JonMunkholm/fileintake/internal/importer"
	"github.com/JonMunkholm/fileintake/internal/storage"
)

func sampleFile(id string) core.UploadedFile {
	return core.UploadedFile{
		StorageID:    id,
		OriginalName: "report.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    42,
		OwnerID:      "alice",
		UploadedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		AccessURL:    "http://localhost:8080/uploads/files/" + id,
	}
}

func TestMemoryFiles(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFiles()
	f := sampleFile("1-a.pdf")

	ok, err := m.Exists(ctx, f.StorageID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Insert(ctx, f))
	assert.ErrorIs(t, m.Insert(ctx, f), storage.ErrAlreadyExists)

	got, err := m.Get(ctx, f.StorageID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	require.NoError(t, m.Delete(ctx, f.StorageID))
	assert.ErrorIs(t, m.Delete(ctx, f.StorageID), core.ErrNotFound)

	_, err = m.Get(ctx, f.StorageID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRowConversionRoundTrip(t *testing.T) {
	f := sampleFile("1-b.pdf")
	assert.Equal(t, f, fileFromRow(rowFromFile(f)))
}

func TestRecordStore_BuildRows(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-4000-8000-000000000001"),
		uuid.MustParse("00000000-0000-4000-8000-000000000002"),
		uuid.MustParse("00000000-0000-4000-8000-000000000003"),
	}
	next := 0
	s := &RecordStore{newID: func() uuid.UUID { id := ids[next]; next++; return id }}

	rows, err := s.buildRows(importer.TypeStudents, []importer.RowRecord{
		{Row: 1, Record: importer.Student{Name: "Ada", Email: "ada@example.com", RegistrationNo: "R-1", Course: "General", Status: "Active"}},
		{Row: 4, Record: importer.Student{Name: "Alan", Email: "alan@example.com", RegistrationNo: "R-2", Course: "Maths", Status: "Active"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for i, r := range rows {
		assert.Equal(t, [16]byte(ids[0]), r.BatchID.Bytes)
		assert.Equal(t, [16]byte(ids[i+1]), r.ID.Bytes)
		assert.Equal(t, importer.TypeStudents, r.ImportType)
	}
	assert.Equal(t, int32(1), rows[0].RowIndex)
	assert.Equal(t, int32(4), rows[1].RowIndex)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rows[1].Payload, &payload))
	assert.Equal(t, "R-2", payload["registration_no"])

	empty, err := s.buildRows(importer.TypeStudents, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestPostgres runs against a real database when TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, config.DatabaseConfig{
		URL:             dsn,
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, EnsureSchema(ctx, pool))

	files := NewFileStore(pool)
	f := sampleFile(uuid.NewString() + ".pdf")
	require.NoError(t, files.Insert(ctx, f))
	t.Cleanup(func() { _ = files.Delete(context.Background(), f.StorageID) })

	assert.ErrorIs(t, files.Insert(ctx, f), storage.ErrAlreadyExists)

	got, err := files.Get(ctx, f.StorageID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	require.NoError(t, files.Delete(ctx, f.StorageID))
	assert.ErrorIs(t, files.Delete(ctx, f.StorageID), core.ErrNotFound)
	_, err = files.Get(ctx, f.StorageID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	records := NewRecordStore(pool)
	require.NoError(t, records.SaveRecords(ctx, importer.TypeAttendance, []importer.RowRecord{
		{Row: 2, Record: importer.Attendance{RegistrationNo: "R-1", Status: "present"}},
	}))

	var rowIndex int32
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT row_index FROM import_records WHERE import_type = $1 AND payload->>'registration_no' = $2 ORDER BY created_at DESC LIMIT 1`,
		importer.TypeAttendance, "R-1").Scan(&rowIndex))
	assert.Equal(t, int32(2), rowIndex)
}
