package sanitize

import (
	"regexp"
	"unicode/utf8"
)

// Plain email (case-insensitive)
var reEmail = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

// Common phone shapes: +xx..., (xxx) xxx-xxxx, 08xx..., etc.
// Only digits, spaces, minus, dot, parens and plus are allowed, with at
// least 9 digits total so normal numbers in prose are not over-matched.
var rePhone = regexp.MustCompile(`\+?\d[\d\s\-\.\(\)]{7,}\d`)

// RedactPII strips emails and phone numbers out of free text. Lead notes
// routinely contain contact details typed by agents; team-wide list views
// must not leak them.
func RedactPII(s string) string {
	if s == "" {
		return s
	}
	s = reEmail.ReplaceAllString(s, "[redacted email]")
	s = rePhone.ReplaceAllString(s, "[redacted phone]")
	return s
}

// Summary trims text for listing previews, cutting at a word boundary.
// When there is no space to cut at, it falls back to a rune boundary so
// multibyte text is never split mid-character.
func Summary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && i < len(s) && s[i] != ' ' {
		i--
	}
	if i <= 0 {
		i = max
		for i > 0 && !utf8.RuneStart(s[i]) {
			i--
		}
	}
	return s[:i] + "…"
}
