package permission

import (
	"context"
	"errors"
)

// Sentinel errors for the permission package.
var (
	ErrNotFound = errors.New("permission not found")
)

// TopicPermission grants a user read and/or write access to every topic whose
// name matches the pattern.
type TopicPermission struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	TopicPattern string `json:"topic_pattern"`
	CanRead      bool   `json:"can_read"`
	CanWrite     bool   `json:"can_write"`
}

// Repository defines the data-access contract for topic permissions.
type Repository interface {
	Create(ctx context.Context, userID int64, pattern string, canRead, canWrite bool) (*TopicPermission, error)
	ListForUser(ctx context.Context, userID int64) ([]TopicPermission, error)
	List(ctx context.Context) ([]TopicPermission, error)
	Delete(ctx context.Context, id int64) error
}

// CanRead reports whether any of the permissions grants read access to the
// named topic.
func CanRead(perms []TopicPermission, topicName string) bool {
	for _, p := range perms {
		if p.CanRead && Matches(p.TopicPattern, topicName) {
			return true
		}
	}
	return false
}

// CanWrite reports whether any of the permissions grants write access to the
// named topic.
func CanWrite(perms []TopicPermission, topicName string) bool {
	for _, p := range perms {
		if p.CanWrite && Matches(p.TopicPattern, topicName) {
			return true
		}
	}
	return false
}
