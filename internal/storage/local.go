package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores files under a base directory on the local filesystem.
type Local struct {
	basePath string
}

// NewLocal creates a storage provider rooted at basePath.
func NewLocal(basePath string) *Local {
	return &Local{basePath: basePath}
}

// Put writes the contents of r to the file identified by key. Parent
// directories are created automatically. If the write fails partway through,
// the partially written file is removed.
func (s *Local) Put(_ context.Context, key string, r io.Reader) error {
	fullPath := filepath.Join(s.basePath, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create storage file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("write storage file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("close storage file: %w", err)
	}
	return nil
}

// Get opens the file identified by key for reading.
func (s *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	return f, nil
}

// Delete removes the file at key. If the file does not exist, no error is
// returned.
func (s *Local) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete storage file: %w", err)
	}
	return nil
}
