package category

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Anything that is not a lowercase letter, digit, whitespace or hyphen.
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	hyphenRuns     = regexp.MustCompile(`-+`)

	stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// GenerateSlug converts a category name to a URL-safe slug.
// "Men's & Boys' Wear!!" -> "mens-boys-wear".
// "Café Equipment" -> "cafe-equipment".
//
// Punctuation is removed rather than replaced, so "T-Shirts/Tops" becomes
// "t-shirtstops". The result may be empty; uniqueness is not guaranteed.
func GenerateSlug(name string) string {
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}

	s = strings.ToLower(s)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}

// IsValidSlug reports whether s is already in canonical slug form.
func IsValidSlug(s string) bool {
	return s != "" && GenerateSlug(s) == s
}
