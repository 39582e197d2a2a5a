package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fileintake/internal/config"
	"github.com/JonMunkholm/fileintake/internal/importer"
	"github.com/JonMunkholm/fileintake/internal/storage"
)

// fakeFiles is an in-memory FileRepository with failure hooks.
type fakeFiles struct {
	mu        sync.Mutex
	rows      map[string]UploadedFile
	inserts   int
	insertErr func(n int, f UploadedFile) error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{rows: make(map[string]UploadedFile)}
}

func (f *fakeFiles) Insert(_ context.Context, uf UploadedFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		if err := f.insertErr(f.inserts, uf); err != nil {
			return err
		}
	}
	f.rows[uf.StorageID] = uf
	return nil
}

func (f *fakeFiles) Get(_ context.Context, id string) (UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uf, ok := f.rows[id]
	if !ok {
		return UploadedFile{}, ErrNotFound
	}
	return uf, nil
}

func (f *fakeFiles) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeFiles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// capturedRecords is a RecordSink that keeps what it was given.
type capturedRecords struct {
	importType string
	records    []importer.RowRecord
	err        error
}

func (c *capturedRecords) SaveRecords(_ context.Context, importType string, records []importer.RowRecord) error {
	c.importType = importType
	c.records = append(c.records, records...)
	return c.err
}

// failingDeleteStore makes Delete fail for every id.
type failingDeleteStore struct {
	storage.Store
}

func (failingDeleteStore) Delete(context.Context, string) error {
	return errors.New("bucket unavailable")
}

type harness struct {
	svc     *Service
	store   storage.Store
	files   *fakeFiles
	records *capturedRecords
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{PublicBaseURL: "https://files.example.com/"},
		Upload: config.UploadConfig{
			MaxFileSize:   1024,
			MaxFiles:      5,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, storage.NewLocalStoreFs(afero.NewMemMapFs()))
}

func newHarnessWithStore(t *testing.T, store storage.Store) *harness {
	t.Helper()
	files := newFakeFiles()
	records := &capturedRecords{}
	svc, err := NewService(testConfig(), store, files, records)
	require.NoError(t, err)
	return &harness{svc: svc, store: store, files: files, records: records}
}

func (h *harness) blobCount(t *testing.T) int {
	t.Helper()
	blobs, err := h.store.List(context.Background())
	require.NoError(t, err)
	return len(blobs)
}

func textFile(name, body string) FileInput {
	return FileInput{
		Name:     name,
		MimeType: "text/plain",
		Size:     int64(len(body)),
		Reader:   strings.NewReader(body),
	}
}

func TestNewService_RequiresDependencies(t *testing.T) {
	store := storage.NewLocalStoreFs(afero.NewMemMapFs())

	_, err := NewService(nil, store, newFakeFiles(), nil)
	assert.Error(t, err)
	_, err = NewService(testConfig(), nil, newFakeFiles(), nil)
	assert.Error(t, err)
	_, err = NewService(testConfig(), store, nil, nil)
	assert.Error(t, err)

	svc, err := NewService(testConfig(), store, newFakeFiles(), nil)
	require.NoError(t, err)
	assert.IsType(t, DiscardRecords{}, svc.records)
}

func TestUploadOne_StoresBlobAndMetadata(t *testing.T) {
	h := newHarness(t)
	ctx := ContextWithOwner(context.Background(), "alice")

	in := textFile("../notes/Report.TXT", "hello")
	uf, err := h.svc.UploadOne(ctx, &in, OwnerFromContext(ctx))
	require.NoError(t, err)

	assert.True(t, ValidStorageID(uf.StorageID), uf.StorageID)
	assert.True(t, strings.HasSuffix(uf.StorageID, ".txt"))
	assert.Equal(t, "Report.TXT", uf.OriginalName)
	assert.Equal(t, "text/plain", uf.MimeType)
	assert.Equal(t, int64(5), uf.SizeBytes)
	assert.Equal(t, "alice", uf.OwnerID)
	assert.Equal(t, "https://files.example.com/uploads/files/"+uf.StorageID, uf.AccessURL)
	assert.Equal(t, time.UTC, uf.UploadedAt.Location())

	stored, err := h.files.Get(ctx, uf.StorageID)
	require.NoError(t, err)
	assert.Equal(t, uf, stored)

	dl, err := h.svc.Open(ctx, uf.StorageID)
	require.NoError(t, err)
	defer dl.Body.Close()
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), dl.Size)
	assert.Equal(t, "text/plain; charset=utf-8", dl.ContentType)
}

func TestUploadOne_NilFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.UploadOne(context.Background(), nil, AnonymousOwner)
	assert.ErrorIs(t, err, ErrNoFileProvided)
}

func TestUploadMany_EmptyBatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.UploadMany(context.Background(), nil, AnonymousOwner)
	assert.ErrorIs(t, err, ErrNoFileProvided)
}

func TestUploadMany_TooManyFilesStoresNothing(t *testing.T) {
	h := newHarness(t)

	batch := make([]FileInput, 6)
	for i := range batch {
		batch[i] = textFile(fmt.Sprintf("f%d.txt", i), "x")
	}

	_, err := h.svc.UploadMany(context.Background(), batch, AnonymousOwner)
	require.ErrorIs(t, err, ErrTooManyFiles)
	assert.Zero(t, h.blobCount(t))
	assert.Zero(t, h.files.count())
}

func TestUploadMany_RejectsBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		bad  FileInput
		want error
	}{
		{
			name: "disallowed type",
			bad:  FileInput{Name: "a.zip", MimeType: "application/zip", Size: 3, Reader: strings.NewReader("PK!")},
			want: ErrUnsupportedType,
		},
		{
			name: "declared size over limit",
			bad:  FileInput{Name: "big.pdf", MimeType: "application/pdf", Size: 2048, Reader: strings.NewReader("%PDF")},
			want: ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			batch := []FileInput{textFile("ok.txt", "fine"), tt.bad}

			_, err := h.svc.UploadMany(context.Background(), batch, AnonymousOwner)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
			assert.Zero(t, h.blobCount(t))
			assert.Zero(t, h.files.count())
		})
	}
}

func TestUploadMany_UndeclaredOversizeIsRemoved(t *testing.T) {
	h := newHarness(t)
	big := FileInput{
		Name:     "big.txt",
		MimeType: "text/plain",
		Size:     -1,
		Reader:   bytes.NewReader(bytes.Repeat([]byte("a"), 4096)),
	}

	_, err := h.svc.UploadMany(context.Background(), []FileInput{textFile("a.txt", "a"), big}, AnonymousOwner)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, h.blobCount(t))
	assert.Zero(t, h.files.count())
}

func TestUploadMany_RollsBackOnMetadataFailure(t *testing.T) {
	h := newHarness(t)
	h.files.insertErr = func(n int, _ UploadedFile) error {
		if n == 3 {
			return errors.New("insert failed")
		}
		return nil
	}

	batch := []FileInput{textFile("a.txt", "a"), textFile("b.txt", "b"), textFile("c.txt", "c")}
	_, err := h.svc.UploadMany(context.Background(), batch, AnonymousOwner)
	require.Error(t, err)
	assert.False(t, IsValidationError(err))

	assert.Zero(t, h.blobCount(t))
	assert.Zero(t, h.files.count())
}

func TestUploadMany_SniffsGenericType(t *testing.T) {
	h := newHarness(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	in := FileInput{Name: "photo", MimeType: "application/octet-stream", Size: int64(len(png)), Reader: bytes.NewReader(png)}

	stored, err := h.svc.UploadMany(context.Background(), []FileInput{in}, AnonymousOwner)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "image/png", stored[0].MimeType)
	assert.Equal(t, int64(len(png)), stored[0].SizeBytes)
}

func TestUploadMany_BusyLimiter(t *testing.T) {
	h := newHarness(t)
	h.svc.limiter = NewUploadLimiter(1, 20*time.Millisecond)
	require.NoError(t, h.svc.limiter.Acquire(context.Background()))
	defer h.svc.limiter.Release()

	_, err := h.svc.UploadMany(context.Background(), []FileInput{textFile("a.txt", "a")}, AnonymousOwner)
	require.ErrorIs(t, err, ErrTooManyUploads)
	assert.Zero(t, h.blobCount(t))
}

func TestOpen_EmptyFile(t *testing.T) {
	h := newHarness(t)
	in := textFile("empty.txt", "")
	uf, err := h.svc.UploadOne(context.Background(), &in, AnonymousOwner)
	require.NoError(t, err)
	assert.Zero(t, uf.SizeBytes)

	dl, err := h.svc.Open(context.Background(), uf.StorageID)
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Zero(t, dl.Size)
}

func TestOpen_UnknownAndMalformedIDs(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{
		"1718000000000000000-0b6a2f53-7d4e-4c52-9f7e-2b1f1f5d9a10.pdf",
		"../etc/passwd",
		"",
	} {
		_, err := h.svc.Open(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestDelete_RemovesBoth(t *testing.T) {
	h := newHarness(t)
	in := textFile("a.txt", "a")
	uf, err := h.svc.UploadOne(context.Background(), &in, AnonymousOwner)
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(context.Background(), uf.StorageID))
	assert.Zero(t, h.blobCount(t))
	assert.Zero(t, h.files.count())

	assert.ErrorIs(t, h.svc.Delete(context.Background(), uf.StorageID), ErrNotFound)
}

func TestDelete_DropsStaleMetadata(t *testing.T) {
	h := newHarness(t)
	in := textFile("a.txt", "a")
	uf, err := h.svc.UploadOne(context.Background(), &in, AnonymousOwner)
	require.NoError(t, err)
	require.NoError(t, h.store.Delete(context.Background(), uf.StorageID))

	err = h.svc.Delete(context.Background(), uf.StorageID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, h.files.count())
}

func TestDelete_RestoresMetadataWhenBlobDeleteFails(t *testing.T) {
	base := storage.NewLocalStoreFs(afero.NewMemMapFs())
	h := newHarnessWithStore(t, failingDeleteStore{Store: base})

	in := textFile("a.txt", "a")
	uf, err := h.svc.UploadOne(context.Background(), &in, AnonymousOwner)
	require.NoError(t, err)

	err = h.svc.Delete(context.Background(), uf.StorageID)
	require.Error(t, err)

	restored, err := h.files.Get(context.Background(), uf.StorageID)
	require.NoError(t, err)
	assert.Equal(t, uf, restored)
	assert.Equal(t, 1, h.blobCount(t))
}

func TestFile_ReturnsMetadata(t *testing.T) {
	h := newHarness(t)
	in := textFile("a.txt", "a")
	uf, err := h.svc.UploadOne(context.Background(), &in, "bob")
	require.NoError(t, err)

	got, err := h.svc.File(context.Background(), uf.StorageID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.OwnerID)

	_, err = h.svc.File(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
