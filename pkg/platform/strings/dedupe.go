// Package strings normalizes string lists taken from request bodies.
package strings

import (
	"strings"
)

// NormalizeSet trims and lowercases each value, then drops empties and
// repeats. First-seen order is kept and a nil input stays nil.
//
//	NormalizeSet([]string{" Voice_Recording ", "interaction_text", "VOICE_RECORDING", ""})
//	// []string{"voice_recording", "interaction_text"}
func NormalizeSet(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := strings.ToLower(strings.TrimSpace(v))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
