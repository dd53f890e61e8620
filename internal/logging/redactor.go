package logging

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// token=... inside URLs and query strings
	tokenQuery = regexp.MustCompile(`(?i)([?&](?:token|access_token|auth)=)[^&\s"]*`)
)

// redactor redacts sensitive values in log key-value pairs.
type redactor struct {
	sensitiveWords map[string]bool
}

// newRedactor creates a new redactor with the default sensitive key pattern.
func newRedactor() *redactor {
	words := []string{"secret", "password", "token", "key", "auth", "credential"}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return &redactor{
		sensitiveWords: m,
	}
}

// redact walks through a slice of key-value pairs (flattened as [key1, value1, key2, value2, ...]).
// Values of sensitive keys are replaced entirely. String values of other keys
// have credentials embedded in URLs masked. The original slice is not modified.
func (r *redactor) redact(pairs []any) []any {
	if len(pairs) == 0 {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		if r.isSensitive(key) {
			result[i+1] = redacted
			continue
		}
		switch v := result[i+1].(type) {
		case string:
			result[i+1] = redactString(v)
		case error:
			if masked := redactString(v.Error()); masked != v.Error() {
				result[i+1] = masked
			}
		}
	}
	return result
}

// isSensitive returns true if the key contains any sensitive word as a separate segment.
// Segments are split by non-alphanumeric characters (including underscore).
func (r *redactor) isSensitive(key string) bool {
	for _, part := range nonAlphanumeric.Split(strings.ToLower(key), -1) {
		if r.sensitiveWords[part] {
			return true
		}
	}
	return false
}

// redactString masks credential query parameters, e.g. ws://host/ws?token=abc.
func redactString(value string) string {
	if !strings.Contains(value, "=") {
		return value
	}
	return tokenQuery.ReplaceAllString(value, "${1}"+redacted)
}
