package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the URL slug of a post title: diacritics are folded,
// the result is lowercased, every run of characters outside [a-z0-9]
// becomes a single hyphen and edge hyphens are trimmed.
//
//	Slugify("Hello & World! 2024") == "hello-world-2024"
//	Slugify("Crème brûlée")        == "creme-brulee"
func Slugify(title string) string {
	// transform.Chain keeps state, so it is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(s, "-")
}
