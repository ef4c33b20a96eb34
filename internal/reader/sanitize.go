package reader

import (
	"strings"
	"unicode/utf8"
)

// Sanitize replaces characters that are invalid in XML 1.0 or that break
// subtitle renderers with U+FFFD: the C0 controls other than tab, line
// feed and carriage return, plus the Unicode line and paragraph
// separators. Invalid UTF-8 is replaced as well.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r <= 0x08, r == 0x0B, r == 0x0C, r >= 0x0E && r <= 0x1F,
			r == '\u2028', r == '\u2029':
			return utf8.RuneError
		}
		return r
	}, s)
}

// UnescapeNewline turns the two-character "/n" escape into a line feed.
func UnescapeNewline(s string) string {
	return strings.ReplaceAll(s, "/n", "\n")
}
