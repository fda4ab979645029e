package message

import (
	"strings"
	"time"
)

// ParseSchedule interprets a scheduling value from a publish request. It tries,
// in order: a relative duration ("30m", "2h30m"), an RFC 3339 timestamp, and a
// plain "2006-01-02 15:04:05" datetime (interpreted as UTC). The result is
// normalized to UTC.
func ParseSchedule(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadSchedule
	}

	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return now.Add(d).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, ErrBadSchedule
}
