package attachment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the attachment package.
var (
	ErrNotFound = errors.New("attachment not found")
	ErrNoFile   = errors.New("no file provided")
)

// Attachment is a file associated with a message. The stored file lives at
// StoragePath under a collision-proof random prefix; Filename keeps the
// sanitized client-supplied name for Content-Disposition.
type Attachment struct {
	ID          int64      `json:"id"`
	MessageID   int64      `json:"message_id"`
	Filename    string     `json:"filename"`
	ContentType *string    `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	StorageType string     `json:"storage_type"`
	StoragePath string     `json:"storage_path"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateParams groups the inputs for recording an uploaded attachment.
type CreateParams struct {
	MessageID   int64
	Filename    string
	ContentType *string
	SizeBytes   int64
	StorageType string
	StoragePath string
	ExpiresAt   *time.Time
}

// SanitizeFilename strips directory components and any character outside
// [A-Za-z0-9._-] from a client-supplied filename. Names that sanitize to
// nothing (or to "." / "..") are replaced with a fresh opaque name.
func SanitizeFilename(raw string) string {
	name := raw
	if idx := strings.LastIndexAny(name, "/\\"); idx != -1 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '-', c == '_':
			b.WriteRune(c)
		}
	}

	sanitized := b.String()
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return uuid.NewString() + ".bin"
	}
	return sanitized
}

// StorageKey builds the on-disk name for an upload: a freshly minted opaque
// prefix joined to the sanitized filename, so concurrent uploads of the same
// name never collide.
func StorageKey(sanitizedFilename string) string {
	return uuid.NewString() + "_" + sanitizedFilename
}

// Repository defines the data-access contract for attachment operations.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Attachment, error)
	GetByID(ctx context.Context, id int64) (*Attachment, error)
	ListExpired(ctx context.Context) ([]Attachment, error)
	Delete(ctx context.Context, id int64) error
}
