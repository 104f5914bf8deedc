package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>". Provider SDKs echo auth headers in error strings.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Header dumps: Brave uses X-Subscription-Token, Apollo uses X-Api-Key,
	// Gemini uses x-goog-api-key.
	authHeaderRe = regexp.MustCompile(`(?i)\b(x-subscription-token|x-api-key|x-goog-api-key)\b\s*[:=]\s*[^\s"',]+`)

	// key=value and query-string forms.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|key|token)\b\s*[:=]\s*[^\s"'&,]+`)

	// JSON bodies, e.g. the Tavily request payload.
	apiKeyJSONRe = regexp.MustCompile(`(?i)"(api[_-]?key|token)"\s*:\s*"[^"]*"`)
)

// RedactSecrets removes obvious secret-bearing substrings from error and log
// strings. Safe to call on any message, including user input.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = authHeaderRe.ReplaceAllString(out, "$1: <redacted>")
	out = apiKeyJSONRe.ReplaceAllString(out, `"$1":"<redacted>"`)
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
