// Package strings holds small string-slice helpers shared by the
// config layer.
package strings

import "strings"

// DedupeAndTrim trims whitespace from each element, drops empties, and
// removes duplicates, keeping first-seen order. Comma-separated env
// lists such as the chat API keys are cleaned up through here, so a
// trailing comma or a repeated key never reaches the client.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
