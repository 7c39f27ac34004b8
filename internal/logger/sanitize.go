package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxIDLength is the maximum length for identifiers in logs (UUIDs are 36 chars)
	MaxIDLength = 128
	// MaxTagLength is the maximum length for a single tag or search term in logs
	MaxTagLength = 128
	// MaxTagsLogged is the maximum number of tags included in one log field
	MaxTagsLogged = 50
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000
)

// SanitizePath sanitizes a URL path for safe logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString sanitizes a general string for safe logging
// Removes control characters, truncates to maxLength, and validates UTF-8
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = sanitizeFilterRunes(s)
	if len(s) > maxLength {
		s = truncateUTF8(s, maxLength) + "..."
	}
	return s
}

// sanitizeFilterRunes validates UTF-8 and removes control characters (keeps printable, space, tab, newline, CR).
func sanitizeFilterRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// SanitizeError sanitizes an error message for safe logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeID sanitizes an identifier (job id, request id) for safe logging
func SanitizeID(id string) string {
	return SanitizeString(id, MaxIDLength)
}

// SanitizeTag sanitizes a user supplied tag or search term for safe logging
func SanitizeTag(tag string) string {
	return SanitizeString(tag, MaxTagLength)
}

// SanitizeTags sanitizes user supplied tags, keeping at most MaxTagsLogged of them
func SanitizeTags(tags []string) []string {
	n := min(len(tags), MaxTagsLogged)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = SanitizeTag(tags[i])
	}
	return out
}
