package api

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapGetter adapts a header map to the headerGetter shape with
// case-insensitive lookup, the way HTTP header access behaves.
func mapGetter(headers map[string]string) headerGetter {
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lower[strings.ToLower(k)] = v
	}
	return func(key string) string {
		return lower[strings.ToLower(key)]
	}
}

func TestParsePublishHeadersBasics(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	h := ParsePublishHeaders(mapGetter(map[string]string{
		"X-Title":    "Boom",
		"X-Priority": "urgent",
		"X-Tags":     "warn, cpu, ",
		"X-Click":    "https://example.com",
		"X-Markdown": "yes",
	}), now)

	require.NotNil(t, h.Title)
	assert.Equal(t, "Boom", *h.Title)
	require.NotNil(t, h.Priority)
	assert.Equal(t, 5, *h.Priority)
	assert.Equal(t, []string{"warn", "cpu"}, h.Tags)
	require.NotNil(t, h.ClickURL)
	assert.Equal(t, "https://example.com", *h.ClickURL)
	require.NotNil(t, h.ContentType)
	assert.Equal(t, "text/markdown", *h.ContentType)
}

func TestParsePublishHeadersPlainVariants(t *testing.T) {
	t.Parallel()
	h := ParsePublishHeaders(mapGetter(map[string]string{
		"Title":    "plain",
		"priority": "low",
	}), time.Now())

	require.NotNil(t, h.Title)
	assert.Equal(t, "plain", *h.Title)
	require.NotNil(t, h.Priority)
	assert.Equal(t, 2, *h.Priority)
}

func TestParsePublishHeadersXWins(t *testing.T) {
	t.Parallel()
	h := ParsePublishHeaders(mapGetter(map[string]string{
		"X-Title": "from-x",
		"Title":   "from-plain",
	}), time.Now())

	require.NotNil(t, h.Title)
	assert.Equal(t, "from-x", *h.Title)
}

func TestParsePublishHeadersDelay(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	h := ParsePublishHeaders(mapGetter(map[string]string{"X-Delay": "30m"}), now)
	require.NotNil(t, h.ScheduledFor)
	assert.True(t, h.ScheduledFor.Equal(now.Add(30*time.Minute)))

	h = ParsePublishHeaders(mapGetter(map[string]string{"At": "2024-07-01T08:00:00Z"}), now)
	require.NotNil(t, h.ScheduledFor)
	assert.True(t, h.ScheduledFor.Equal(time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)))

	h = ParsePublishHeaders(mapGetter(map[string]string{"X-In": "garbage"}), now)
	assert.Nil(t, h.ScheduledFor)
}

func TestParsePublishHeadersCache(t *testing.T) {
	t.Parallel()
	h := ParsePublishHeaders(mapGetter(map[string]string{"X-Cache": "12h"}), time.Now())
	require.NotNil(t, h.CacheDuration)
	assert.Equal(t, 12*time.Hour, *h.CacheDuration)

	h = ParsePublishHeaders(mapGetter(map[string]string{"Cache": "often"}), time.Now())
	assert.Nil(t, h.CacheDuration)
}

func TestParsePublishHeadersEmptyTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	h := ParsePublishHeaders(mapGetter(map[string]string{
		"X-Title": "   ",
		"Email":   "",
	}), time.Now())

	assert.Nil(t, h.Title)
	assert.Nil(t, h.Email)
}

func TestParsePriorityWords(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want int
	}{
		{"min", 1}, {"low", 2}, {"default", 3}, {"high", 4}, {"max", 5},
		{"urgent", 5}, {"MAX", 5}, {"1", 1}, {"5", 5}, {"7", 7},
		{"nonsense", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePriority(tt.in), "parsePriority(%q)", tt.in)
	}
}
