// Package redact scrubs credential-shaped substrings from text before it is
// logged or shown to anyone.
package redact

import "regexp"

// Known provider key prefixes. The prefix is kept so operators can still tell
// which credential leaked; everything after it is masked.
var keyPrefixRe = regexp.MustCompile(`(sk-proj-|sk-|AIza|ghp_|ghu_|gsk_)[A-Za-z0-9_\-]{10,}`)

// Messaging-platform bot token: <digits>:<22+ alnum/dash/underscore>.
var botTokenRe = regexp.MustCompile(`\d{8,12}:[A-Za-z0-9_\-]{22,}`)

// Generic high-entropy base64-like run; the first 8 chars survive for
// diagnostics.
var base64RunRe = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)

// Redact masks credential-shaped substrings in text. It is pure, total, and
// idempotent: Redact(Redact(s)) == Redact(s).
func Redact(text string) string {
	text = keyPrefixRe.ReplaceAllString(text, "${1}***MASKED***")
	text = botTokenRe.ReplaceAllString(text, "***BOT_TOKEN_MASKED***")
	text = base64RunRe.ReplaceAllStringFunc(text, func(m string) string {
		return m[:8] + "***"
	})
	return text
}
