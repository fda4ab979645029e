package message

import (
	"strings"
	"testing"
	"time"
)

func TestValidateContent(t *testing.T) {
	t.Parallel()
	const maxSize = 65536

	if err := ValidateContent("hello", maxSize); err != nil {
		t.Errorf("ValidateContent(hello) error = %v, want nil", err)
	}
	if err := ValidateContent("", maxSize); err == nil {
		t.Error("ValidateContent(empty) = nil, want error")
	}
	if err := ValidateContent(strings.Repeat("a", maxSize), maxSize); err != nil {
		t.Errorf("ValidateContent(max-size) error = %v, want nil", err)
	}
	if err := ValidateContent(strings.Repeat("a", maxSize+1), maxSize); err == nil {
		t.Error("ValidateContent(over-size) = nil, want error")
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{1, 1},
		{250, 250},
		{500, 500},
		{501, MaxLimit},
		{10000, MaxLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseScheduleRelative(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseSchedule("30m", now)
	if err != nil {
		t.Fatalf("ParseSchedule(30m) error = %v", err)
	}
	if want := now.Add(30 * time.Minute); !got.Equal(want) {
		t.Errorf("ParseSchedule(30m) = %v, want %v", got, want)
	}

	got, err = ParseSchedule("2h30m", now)
	if err != nil {
		t.Fatalf("ParseSchedule(2h30m) error = %v", err)
	}
	if want := now.Add(2*time.Hour + 30*time.Minute); !got.Equal(want) {
		t.Errorf("ParseSchedule(2h30m) = %v, want %v", got, want)
	}
}

func TestParseScheduleRFC3339(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseSchedule("2024-07-01T10:00:00+02:00", now)
	if err != nil {
		t.Fatalf("ParseSchedule(rfc3339) error = %v", err)
	}
	want := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseSchedule(rfc3339) = %v, want %v (normalized UTC)", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("ParseSchedule(rfc3339) location = %v, want UTC", got.Location())
	}
}

func TestParseSchedulePlainDatetime(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := ParseSchedule("2024-07-01 10:30:00", now)
	if err != nil {
		t.Fatalf("ParseSchedule(plain) error = %v", err)
	}
	want := time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseSchedule(plain) = %v, want %v", got, want)
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	now := time.Now()
	for _, in := range []string{"", "soon", "yesterday", "25:99"} {
		if _, err := ParseSchedule(in, now); err == nil {
			t.Errorf("ParseSchedule(%q) = nil error, want error", in)
		}
	}
}

func TestToView(t *testing.T) {
	t.Parallel()

	appID := int64(4)
	title := "Hi"
	tags := `["warn","cpu"]`
	badExtras := `{not json`
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	m := Message{
		ID:            9,
		ApplicationID: &appID,
		Title:         &title,
		Message:       "hello",
		Priority:      7,
		Tags:          &tags,
		Extras:        &badExtras,
		CreatedAt:     created,
	}

	v := m.ToView("")
	if v.ID != 9 || v.AppID == nil || *v.AppID != 4 {
		t.Errorf("view id/appid = %d/%v, want 9/4", v.ID, v.AppID)
	}
	if v.Topic != nil {
		t.Errorf("view topic = %v, want nil for app message", v.Topic)
	}
	if string(v.Tags) != tags {
		t.Errorf("view tags = %s, want %s", v.Tags, tags)
	}
	if v.Extras != nil {
		t.Error("view extras should be dropped for invalid JSON")
	}
	if !v.Date.Equal(created) {
		t.Errorf("view date = %v, want %v", v.Date, created)
	}

	tv := m.ToView("alerts.cpu")
	if tv.Topic == nil || *tv.Topic != "alerts.cpu" {
		t.Errorf("view topic = %v, want alerts.cpu", tv.Topic)
	}
}
