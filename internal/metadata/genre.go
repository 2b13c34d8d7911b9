package metadata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stoplist holds folksonomy tags that describe listeners, not music.
var stoplist = map[string]struct{}{
	"seen live": {},
	"favorites": {},
	"favourite": {},
	"love":      {},
	"loved":     {},
	"awesome":   {},
	"great":     {},
	"good":      {},
	"best":      {},
	"cool":      {},
	"amazing":   {},
	"beautiful": {},
	"classic":   {},
}

// TitleCase upper-cases the first letter of every word and lower-cases the rest.
func TitleCase(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Title(language.English).String(s)
}

// FormatGenres trims, title-cases and joins genre terms with ", ".
// Source order is kept and duplicates are not removed. Returns "" when
// nothing usable is left.
func FormatGenres(terms []string) string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, TitleCase(t))
	}
	return strings.Join(out, ", ")
}

// FilterStoplist drops subjective tags such as "seen live" or "awesome".
func FilterStoplist(tags []string) []string {
	var out []string
	for _, t := range tags {
		if _, skip := stoplist[strings.ToLower(strings.TrimSpace(t))]; skip {
			continue
		}
		out = append(out, t)
	}
	return out
}
