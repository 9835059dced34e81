// Package prune shortens text for prompts without splitting UTF-8 runes.
package prune

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "…"

// CollapseWhitespace replaces every run of whitespace with a single space
// and trims the ends.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// TruncateRunes cuts s to maxRunes runes and appends Ellipsis. The second
// result reports whether s was cut.
func TruncateRunes(s string, maxRunes int) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + Ellipsis, true
		}
		n++
	}
	return s, false
}

// SafeUTF8Prefix returns the longest prefix of s of at most maxBytes bytes
// that ends on a rune boundary.
func SafeUTF8Prefix(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) == 0 {
		return ""
	}
	if maxBytes >= len(s) {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Excerpt returns s shortened to at most maxRunes runes for log lines.
func Excerpt(s string, maxRunes int) string {
	out, _ := TruncateRunes(CollapseWhitespace(s), maxRunes)
	return out
}
