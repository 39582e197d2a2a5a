package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

const rootDir = "/"

// LocalStore keeps blobs as flat files in one directory.
type LocalStore struct {
	fs afero.Fs
}

// NewLocalStore returns a store rooted at dir on the OS filesystem.
// The directory is created on first write.
func NewLocalStore(dir string) *LocalStore {
	return NewLocalStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewLocalStoreFs returns a store over an arbitrary afero filesystem.
// Tests pass afero.NewMemMapFs().
func NewLocalStoreFs(fsys afero.Fs) *LocalStore {
	return &LocalStore{fs: fsys}
}

func blobPath(id string) string {
	return path.Join(rootDir, id)
}

// Put writes r to a new file. Existing ids are never overwritten.
func (s *LocalStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	if err := checkID(id); err != nil {
		return 0, writeFailure(id, err)
	}
	if err := s.fs.MkdirAll(rootDir, 0o755); err != nil {
		return 0, writeFailure(id, err)
	}

	f, err := s.fs.OpenFile(blobPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, writeFailure(id, ErrAlreadyExists)
		}
		return 0, writeFailure(id, err)
	}

	n, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(blobPath(id))
		return 0, writeFailure(id, err)
	}
	return n, nil
}

// Exists reports whether a blob is stored under id.
func (s *LocalStore) Exists(_ context.Context, id string) (bool, error) {
	if checkID(id) != nil {
		return false, nil
	}
	info, err := s.fs.Stat(blobPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Open returns a reader for the blob. Close releases the file handle.
func (s *LocalStore) Open(_ context.Context, id string) (io.ReadCloser, error) {
	if checkID(id) != nil {
		return nil, ErrNotFound
	}
	f, err := s.fs.Open(blobPath(id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return f, nil
}

// Size returns the blob length in bytes.
func (s *LocalStore) Size(_ context.Context, id string) (int64, error) {
	if checkID(id) != nil {
		return 0, ErrNotFound
	}
	info, err := s.fs.Stat(blobPath(id))
	if err != nil {
		return 0, notFoundOr(err)
	}
	return info.Size(), nil
}

// Delete removes the blob irreversibly.
func (s *LocalStore) Delete(_ context.Context, id string) error {
	if checkID(id) != nil {
		return ErrNotFound
	}
	if _, err := s.fs.Stat(blobPath(id)); err != nil {
		return notFoundOr(err)
	}
	if err := s.fs.Remove(blobPath(id)); err != nil {
		return notFoundOr(err)
	}
	return nil
}

// List returns all regular files under the root.
func (s *LocalStore) List(_ context.Context) ([]BlobInfo, error) {
	entries, err := afero.ReadDir(s.fs, rootDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || checkID(e.Name()) != nil {
			continue
		}
		blobs = append(blobs, BlobInfo{ID: e.Name(), Size: e.Size(), ModTime: e.ModTime()})
	}
	return blobs, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// contextReader stops a copy once ctx is done, so a dropped client aborts
// the write instead of draining the body.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
