// Package sanitizer normalizes untrusted text before it reaches storage or
// the AI provider. Chat input arrives from an embeddable widget, so every
// message is treated as hostile until cleaned.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
)

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// MaxLength truncates the string to maxLen runes. Unicode-safe.
func MaxLength(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// RemoveExtraWhitespace collapses whitespace runs to a single space and
// trims the result.
func RemoveExtraWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// RemoveControlChars drops control characters while preserving common
// whitespace (newline, carriage return, tab).
func RemoveControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// StripHTML removes tags and decodes entities for safe text extraction.
func StripHTML(s string) string {
	stripped := htmlTagRegex.ReplaceAllString(s, "")
	return html.UnescapeString(stripped)
}

// SingleLine converts multi-line strings to a single line.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return RemoveExtraWhitespace(s)
}

// ChatMessage applies the full cleaning chain for user chat input: strip
// markup, drop control characters, collapse whitespace. Length limits are
// enforced by the caller, which knows the configured maximum.
func ChatMessage(s string) string {
	s = StripHTML(s)
	s = RemoveControlChars(s)
	return RemoveExtraWhitespace(s)
}
