package helpers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spaceRe = regexp.MustCompile(`\s+`)

// invisible characters that DOM flattening leaves behind on retail pages
var invisibleReplacer = strings.NewReplacer(
	"\u00A0", " ", // no-break space
	"\u202F", " ", // narrow no-break space
	"\u2009", " ", // thin space
	"\u200B", "", // zero-width space
	"\u200C", "", // zero-width non-joiner
	"\u200D", "", // zero-width joiner
	"\uFEFF", "", // byte order mark
	"\u00AD", "", // soft hyphen
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
)

// CleanSpaces collapses whitespace runs and strips zero-width characters.
func CleanSpaces(s string) string {
	if s == "" {
		return ""
	}
	s = invisibleReplacer.Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents folds accented letters to their base form ("Étudiant" ->
// "Etudiant") so fuzzy matching works across Latin-script languages.
func StripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}
