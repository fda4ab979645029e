package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalPutGetDelete(t *testing.T) {
	t.Parallel()
	s := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := s.Put(ctx, "sub/dir/file.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, err := s.Get(ctx, "sub/dir/file.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Get() = %q, want hello", data)
	}

	if err := s.Delete(ctx, "sub/dir/file.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "sub/dir/file.txt"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestLocalGetMissing(t *testing.T) {
	t.Parallel()
	s := NewLocal(t.TempDir())
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
}

func TestLocalDeleteMissingIsNoError(t *testing.T) {
	t.Parallel()
	s := NewLocal(t.TempDir())
	if err := s.Delete(context.Background(), "nope"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}

func TestLocalPutOverwrites(t *testing.T) {
	t.Parallel()
	s := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := s.Put(ctx, "f", strings.NewReader("one")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "f", strings.NewReader("two")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, err := s.Get(ctx, "f")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "two" {
		t.Errorf("Get() = %q, want two", data)
	}
}
