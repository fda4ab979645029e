package topic

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"alerts.cpu", "alerts.cpu", nil},
		{"my-topic_1", "my-topic_1", nil},
		{"  padded  ", "padded", nil},
		{"", "", ErrNameLength},
		{"   ", "", ErrNameLength},
		{strings.Repeat("a", 129), "", ErrNameLength},
		{"bad topic", "", ErrNameChars},
		{"nope/slash", "", ErrNameChars},
		{"no#hash", "", ErrNameChars},
	}
	for _, tt := range tests {
		got, err := ValidateName(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateName(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ValidateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateNameMaxLength(t *testing.T) {
	t.Parallel()
	name := strings.Repeat("a", 128)
	got, err := ValidateName(name)
	if err != nil {
		t.Fatalf("ValidateName(128 chars) error = %v", err)
	}
	if got != name {
		t.Errorf("ValidateName(128 chars) altered the name")
	}
}
