package permission

import "strings"

// Matches reports whether a topic name matches a wildcard pattern.
//
// Patterns are dot-segmented:
//   - `*` matches exactly one segment (`alerts.*` matches `alerts.cpu` but not
//     `alerts.cpu.high`)
//   - `**` matches zero or more segments (`alerts.**` matches
//     `alerts.cpu.high`)
//   - any other segment matches literally
//
// Surrounding whitespace on the pattern is ignored.
func Matches(pattern, topic string) bool {
	patternParts := strings.Split(strings.TrimSpace(pattern), ".")
	topicParts := strings.Split(topic, ".")
	return matchParts(patternParts, topicParts)
}

func matchParts(pattern, topic []string) bool {
	if len(pattern) == 0 {
		return len(topic) == 0
	}

	switch pattern[0] {
	case "**":
		if len(topic) == 0 {
			// ** can match zero segments, but only as the last pattern part.
			return len(pattern) == 1
		}
		// Try matching zero segments (skip **) or one+ segments (advance topic).
		return matchParts(pattern[1:], topic) || matchParts(pattern, topic[1:])
	case "*":
		if len(topic) == 0 {
			return false
		}
		return matchParts(pattern[1:], topic[1:])
	default:
		if len(topic) == 0 || pattern[0] != topic[0] {
			return false
		}
		return matchParts(pattern[1:], topic[1:])
	}
}
