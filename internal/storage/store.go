// Package storage persists raw upload bytes ("blobs") under storage ids.
//
// Every backend confines its side effects to a single root (a directory or a
// bucket prefix). Blobs are written once and never modified in place, so a
// reader that opens a blob after Put returned never races the writer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrWriteFailure wraps any I/O error raised while persisting a blob.
	ErrWriteFailure = errors.New("storage write failed")

	// ErrAlreadyExists is returned by Put when the id is already taken.
	ErrAlreadyExists = errors.New("blob already exists")

	// ErrInvalidID is returned for ids that could escape the storage root.
	ErrInvalidID = errors.New("invalid storage id")
)

// Store is the contract every blob backend implements.
type Store interface {
	// Put writes r under id and returns the number of bytes written.
	// Partial blobs are removed when the write fails.
	Put(ctx context.Context, id string, r io.Reader) (int64, error)

	Exists(ctx context.Context, id string) (bool, error)

	// Open streams the blob. The caller must close the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, error)

	Size(ctx context.Context, id string) (int64, error)

	Delete(ctx context.Context, id string) error

	// List returns every blob under the root, in no particular order.
	List(ctx context.Context) ([]BlobInfo, error)
}

// BlobInfo describes one stored blob.
type BlobInfo struct {
	ID      string
	Size    int64
	ModTime time.Time
}

// checkID rejects ids that are empty, hidden, or contain path separators.
func checkID(id string) error {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// writeFailure tags err as a storage write failure while keeping the cause
// inspectable with errors.Is.
func writeFailure(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailure, id, err)
}
