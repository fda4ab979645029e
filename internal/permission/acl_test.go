package permission

import "testing"

func TestMatchesExact(t *testing.T) {
	t.Parallel()
	if !Matches("alerts.cpu", "alerts.cpu") {
		t.Error("Matches(alerts.cpu, alerts.cpu) = false, want true")
	}
	if Matches("alerts.cpu", "alerts.mem") {
		t.Error("Matches(alerts.cpu, alerts.mem) = true, want false")
	}
}

func TestMatchesSingleWildcard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"alerts.*", "alerts.cpu", true},
		{"alerts.*", "alerts.mem", true},
		{"alerts.*", "alerts.cpu.high", false},
		{"alerts.*", "logs.cpu", false},
		{"alerts.*", "alerts", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestMatchesDoubleWildcard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"alerts.**", "alerts.cpu", true},
		{"alerts.**", "alerts.cpu.high", true},
		{"alerts.**", "alerts.cpu.high.critical", true},
		{"alerts.**", "alerts", true},
		{"alerts.**", "logs.cpu", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestMatchesComplexPatterns(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"*.cpu.**", "alerts.cpu.high", true},
		{"*.cpu.**", "logs.cpu.usage.percent", true},
		{"*.cpu.**", "alerts.mem.high", false},
		{"a.**.z", "a.z", true},
		{"a.**.z", "a.b.c.z", true},
		{"a.**.z", "a.b.c", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestMatchesFullWildcard(t *testing.T) {
	t.Parallel()
	for _, topic := range []string{"anything.at.all", "single", "a.b"} {
		if !Matches("**", topic) {
			t.Errorf("Matches(**, %q) = false, want true", topic)
		}
	}
}

func TestMatchesTrimsPatternWhitespace(t *testing.T) {
	t.Parallel()
	if !Matches("  alerts.** ", "alerts.cpu") {
		t.Error("Matches with surrounding whitespace = false, want true")
	}
}

func TestCanReadCanWrite(t *testing.T) {
	t.Parallel()
	perms := []TopicPermission{
		{TopicPattern: "alerts.**", CanRead: true},
		{TopicPattern: "logs.*", CanWrite: true},
	}

	if !CanRead(perms, "alerts.cpu.high") {
		t.Error("CanRead(alerts.cpu.high) = false, want true")
	}
	if CanWrite(perms, "alerts.cpu.high") {
		t.Error("CanWrite(alerts.cpu.high) = true, want false")
	}
	if !CanWrite(perms, "logs.app") {
		t.Error("CanWrite(logs.app) = false, want true")
	}
	if CanRead(perms, "logs.app") {
		t.Error("CanRead(logs.app) = true, want false")
	}
}
