package entity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/churchmedia/pewsync/pkg/constants"
)

// Slugify lowercases s, strips diacritics, collapses every run of
// characters outside [a-z0-9] to a single "-" and trims separators from
// both ends. An empty result yields fallback, or "entity" when fallback is
// empty too.
func Slugify(s, fallback string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	if b.Len() == 0 {
		if fallback == "" {
			return constants.DefaultEntitySlug
		}
		return fallback
	}
	return b.String()
}
