package attachment

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../etc/passwd", "passwd"},
		{`..\windows\system32\cmd.exe`, "cmd.exe"},
		{"my file (1).txt", "myfile1.txt"},
		{"snapshot-2024_01.png", "snapshot-2024_01.png"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameNeverEmptyOrTraversal(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", ".", "..", "///", "日本語"} {
		got := SanitizeFilename(in)
		if got == "" || got == "." || got == ".." {
			t.Errorf("SanitizeFilename(%q) = %q, want a non-degenerate name", in, got)
		}
		if strings.ContainsAny(got, `/\`) {
			t.Errorf("SanitizeFilename(%q) = %q, contains a path separator", in, got)
		}
	}
}

func TestStorageKeyPrefix(t *testing.T) {
	t.Parallel()
	key := StorageKey("report.pdf")

	prefix, rest, found := strings.Cut(key, "_")
	if !found {
		t.Fatalf("StorageKey() = %q, want <prefix>_<name>", key)
	}
	if len(prefix) != 36 {
		t.Errorf("StorageKey() prefix length = %d, want 36", len(prefix))
	}
	if rest != "report.pdf" {
		t.Errorf("StorageKey() name part = %q, want %q", rest, "report.pdf")
	}

	if StorageKey("report.pdf") == key {
		t.Error("two StorageKey() calls returned the same key")
	}
}
