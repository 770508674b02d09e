package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery folds compatibility forms (full-width Latin, ligatures) and
// collapses whitespace so equivalent searches hit the upstream APIs the same
// way.
func NormalizeQuery(query string) string {
	folded := norm.NFKC.String(query)
	return strings.Join(strings.Fields(folded), " ")
}

// Humanize turns an upstream enum value such as "finished_airing" into a
// display label ("Finished Airing"). Short all-letter values like "tv" or
// "ova" are treated as acronyms.
func Humanize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	spaced := strings.NewReplacer("_", " ", "-", " ").Replace(value)
	if len(spaced) <= 3 && !strings.Contains(spaced, " ") {
		return strings.ToUpper(spaced)
	}
	return cases.Title(language.Und).String(strings.ToLower(spaced))
}
