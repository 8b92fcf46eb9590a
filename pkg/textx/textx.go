// Package textx provides small text utilities used across the project.
package textx

import "strings"

// SanitizeText strips control characters except tab/newline/CR and trims
// surrounding whitespace. Inbound platform messages pass through here before
// any handler sees them.
func SanitizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// TruncateRunes caps s at n runes, appending an ellipsis when something was
// cut. Used to keep operator reports and prompts bounded.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
