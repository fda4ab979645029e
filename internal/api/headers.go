package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/pushbin/pushbin-server/internal/message"
)

// PublishHeaders is the metadata parsed from the headers of a raw-body
// publish. Every field is optional; headers are matched case-insensitively in
// both the X-prefixed and plain forms, with the X- form winning.
type PublishHeaders struct {
	Title         *string
	Priority      *int
	Tags          []string
	ClickURL      *string
	IconURL       *string
	Actions       *string
	Filename      *string
	ScheduledFor  *time.Time
	ContentType   *string
	Email         *string
	CacheDuration *time.Duration
}

// headerGetter returns the value of a header by name, or "" when absent.
// fiber.Ctx.Get satisfies it with a bound method; tests use plain maps.
type headerGetter func(key string) string

// ParsePublishHeaders extracts publish metadata from request headers.
// Scheduling values that fail to parse are ignored rather than rejected, the
// same as any other malformed metadata header.
func ParsePublishHeaders(get headerGetter, now time.Time) PublishHeaders {
	var h PublishHeaders

	if v := headerValue(get, "Title"); v != "" {
		h.Title = &v
	}

	if v := headerValue(get, "Priority"); v != "" {
		p := parsePriority(v)
		h.Priority = &p
	}

	if v := headerValue(get, "Tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				h.Tags = append(h.Tags, tag)
			}
		}
	}

	if v := headerValue(get, "Click"); v != "" {
		h.ClickURL = &v
	}
	if v := headerValue(get, "Icon"); v != "" {
		h.IconURL = &v
	}
	if v := headerValue(get, "Actions"); v != "" {
		h.Actions = &v
	}
	if v := headerValue(get, "Filename"); v != "" {
		h.Filename = &v
	}

	for _, name := range []string{"Delay", "At", "In"} {
		if v := headerValue(get, name); v != "" {
			if t, err := message.ParseSchedule(v, now); err == nil {
				h.ScheduledFor = &t
			}
			break
		}
	}

	if v := headerValue(get, "Markdown"); v == "yes" || v == "true" || v == "1" {
		ct := "text/markdown"
		h.ContentType = &ct
	}

	if v := headerValue(get, "Email"); v != "" {
		h.Email = &v
	}

	if v := headerValue(get, "Cache"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			h.CacheDuration = &d
		}
	}

	return h
}

// headerValue reads the X-prefixed variant first, then the plain name, and
// trims the result. HTTP header lookup is case-insensitive at the transport
// layer.
func headerValue(get headerGetter, name string) string {
	if v := strings.TrimSpace(get("X-" + name)); v != "" {
		return v
	}
	return strings.TrimSpace(get(name))
}

// parsePriority maps the priority words and digits to the 1..5 scale. Any
// other integer is returned unchanged; unparseable values fall back to 3.
func parsePriority(s string) int {
	switch strings.ToLower(s) {
	case "min", "1":
		return 1
	case "low", "2":
		return 2
	case "default", "3":
		return 3
	case "high", "4":
		return 4
	case "max", "urgent", "5":
		return 5
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return 3
}
