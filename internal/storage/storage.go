package storage

import (
	"context"
	"errors"
	"io"
)

// ErrKeyNotFound is returned by Get when no file exists at the key.
var ErrKeyNotFound = errors.New("storage key not found")

// TypeLocal is the storage_type value recorded for files on the local disk.
const TypeLocal = "local"

// Provider abstracts file storage so attachments and icons are not tied to the
// local filesystem.
type Provider interface {
	// Put writes the contents of r to the given key, creating parent
	// directories as needed. The caller is responsible for closing r.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the file at key for reading. The caller must close the
	// returned ReadCloser. Returns ErrKeyNotFound when the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the file at key. Missing keys are not treated as errors.
	Delete(ctx context.Context, key string) error
}
