package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/fileintake/internal/logging"
)

// UploadOne stores a single file for ownerID. A nil file fails with
// ErrNoFileProvided.
func (s *Service) UploadOne(ctx context.Context, file *FileInput, ownerID string) (UploadedFile, error) {
	if file == nil {
		return UploadedFile{}, ErrNoFileProvided
	}
	stored, err := s.UploadMany(ctx, []FileInput{*file}, ownerID)
	if err != nil {
		return UploadedFile{}, err
	}
	return stored[0], nil
}

// UploadMany stores a batch of files all-or-nothing.
//
// The batch size is checked first, then every file passes the policy before
// any byte is written. If persisting a later file fails, the files already
// stored by this call are removed again, blob and metadata both.
func (s *Service) UploadMany(ctx context.Context, files []FileInput, ownerID string) ([]UploadedFile, error) {
	if len(files) == 0 {
		return nil, ErrNoFileProvided
	}
	if err := s.policy.CheckBatch(len(files)); err != nil {
		return nil, err
	}

	prepared := make([]FileInput, len(files))
	for i, f := range files {
		if f.Reader == nil {
			return nil, fmt.Errorf("%s: %w", f.Name, ErrNoFileProvided)
		}
		mimeType, body, err := DetectMimeType(f.MimeType, f.Reader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		f.MimeType, f.Reader = mimeType, body

		if err := s.policy.Accept(Candidate{MimeType: f.MimeType, Size: f.Size}, len(files)); err != nil {
			return nil, fmt.Errorf("%s: %w", displayName(f.Name), err)
		}
		prepared[i] = f
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := logging.WithFields(ctx, "owner_id", ownerID, "files", len(prepared))

	stored := make([]UploadedFile, 0, len(prepared))
	for _, f := range prepared {
		uf, err := s.persist(ctx, f, ownerID)
		if err != nil {
			s.rollback(ctx, stored)
			log.Warn("upload failed, batch rolled back", "error", err, "rolled_back", len(stored))
			return nil, err
		}
		stored = append(stored, uf)
	}

	log.Info("upload completed", "client_ip", ClientIPFromContext(ctx))
	return stored, nil
}

// persist writes one accepted file and records its metadata. A blob whose
// metadata cannot be recorded is removed so it never becomes an orphan.
func (s *Service) persist(ctx context.Context, f FileInput, ownerID string) (UploadedFile, error) {
	id := s.namer.Generate(f.Name)

	n, err := s.store.Put(ctx, id, &limitedReader{r: f.Reader, limit: s.policy.MaxFileSize()})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("store %s: %w", displayName(f.Name), err)
	}

	uf := UploadedFile{
		StorageID:    id,
		OriginalName: displayName(f.Name),
		MimeType:     f.MimeType,
		SizeBytes:    n,
		OwnerID:      ownerID,
		UploadedAt:   s.now().UTC(),
		AccessURL:    s.AccessURL(id),
	}

	if err := s.files.Insert(ctx, uf); err != nil {
		s.discardBlob(ctx, id)
		return UploadedFile{}, fmt.Errorf("record %s: %w", uf.OriginalName, err)
	}
	return uf, nil
}

// rollback removes files stored earlier in a failed batch, newest first.
func (s *Service) rollback(ctx context.Context, stored []UploadedFile) {
	ctx = context.WithoutCancel(ctx)
	for i := len(stored) - 1; i >= 0; i-- {
		id := stored[i].StorageID
		if err := s.files.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			logging.FromContext(ctx).Error("rollback: delete metadata failed", "storage_id", id, "error", err)
		}
		s.discardBlob(ctx, id)
	}
}

func (s *Service) discardBlob(ctx context.Context, id string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, ErrNotFound) {
		logging.FromContext(ctx).Error("discard blob failed", "storage_id", id, "error", err)
	}
}

// Open returns a stream over a stored blob with its size and content type.
func (s *Service) Open(ctx context.Context, storageID string) (*Download, error) {
	if !ValidStorageID(storageID) {
		return nil, ErrNotFound
	}

	ok, err := s.store.Exists(ctx, storageID)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", storageID, err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	size, err := s.store.Size(ctx, storageID)
	if err != nil {
		return nil, err
	}
	body, err := s.store.Open(ctx, storageID)
	if err != nil {
		return nil, err
	}

	return &Download{
		Body:        body,
		Size:        size,
		ContentType: ResolveContentType(storageID),
		StorageID:   storageID,
	}, nil
}

// File returns the recorded metadata for a stored blob.
func (s *Service) File(ctx context.Context, storageID string) (UploadedFile, error) {
	if !ValidStorageID(storageID) {
		return UploadedFile{}, ErrNotFound
	}
	return s.files.Get(ctx, storageID)
}

// Delete removes a stored file's metadata and blob together. If the blob
// cannot be removed, the metadata is restored so neither side dangles.
func (s *Service) Delete(ctx context.Context, storageID string) error {
	if !ValidStorageID(storageID) {
		return ErrNotFound
	}

	ok, err := s.store.Exists(ctx, storageID)
	if err != nil {
		return fmt.Errorf("check %s: %w", storageID, err)
	}
	if !ok {
		// Metadata without a blob is stale; drop it along with the 404.
		if err := s.files.Delete(ctx, storageID); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete metadata %s: %w", storageID, err)
		}
		return ErrNotFound
	}

	meta, err := s.files.Get(ctx, storageID)
	hasMeta := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("load metadata %s: %w", storageID, err)
	}

	if hasMeta {
		if err := s.files.Delete(ctx, storageID); err != nil {
			return fmt.Errorf("delete metadata %s: %w", storageID, err)
		}
	}

	if err := s.store.Delete(ctx, storageID); err != nil {
		if hasMeta && !errors.Is(err, ErrNotFound) {
			if rerr := s.files.Insert(context.WithoutCancel(ctx), meta); rerr != nil {
				logging.FromContext(ctx).Error("restore metadata failed", "storage_id", storageID, "error", rerr)
			}
		}
		return err
	}

	logging.FromContext(ctx).Info("file deleted", "storage_id", storageID, "owner_id", OwnerFromContext(ctx))
	return nil
}

// limitedReader fails with ErrTooLarge once more than limit bytes are read.
// The declared size is only a hint; this is what actually bounds a write.
type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, tooLarge(-1, l.limit)
	}
	return n, err
}
