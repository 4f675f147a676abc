package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in error strings.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|password|passwd|from[_-]?password|smtp[_-]?password|secret[_-]?access[_-]?key)\b\s*[:=]\s*[^\s"']+`)

	// SMTP AUTH PLAIN/LOGIN payloads echoed back by some servers.
	smtpAuthRe = regexp.MustCompile(`(?i)\bAUTH\s+(PLAIN|LOGIN)\s+[A-Za-z0-9+/=]+`)

	// user:password@ in URLs.
	urlUserinfoRe = regexp.MustCompile(`(://[^/\s:@]+):[^/\s@]+@`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = smtpAuthRe.ReplaceAllString(out, "AUTH $1 <redacted>")
	out = urlUserinfoRe.ReplaceAllString(out, "$1:<redacted>@")
	return strings.TrimSpace(out)
}
