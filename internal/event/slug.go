package event

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes accented characters and strips the combining
// marks, so "Fête" folds to "Fete" before slugging.
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts text to a URL-safe lowercase ASCII slug: accents are
// folded away, runs of anything outside [a-z0-9] collapse to a single
// hyphen, and leading/trailing hyphens are trimmed. Text that slugs to
// nothing at all falls back to "event".
func Slugify(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	slug := nonAlnumRun.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "event"
	}
	return slug
}
