package extract

import (
	"regexp"
	"strings"
)

var (
	// cityState matches "Dallas, Texas" or "Dallas, TX, Mitchell Drive".
	cityState = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)*),\s*([A-Z][a-zA-Z]+)(?:,\s*([A-Za-z0-9 .]+))?`)

	// prepositionPhrase captures the phrase after "on"/"at"/"near" up to the
	// next clause-ending punctuation.
	prepositionPhrase = regexp.MustCompile(`(?i)(?:^|[\s,])(?:on|at|near)\s+([A-Za-z0-9][A-Za-z0-9 ']{2,60}?)(?:[.,!?;]|$)`)
)

// streetSuffixes are scanned against the original-case utterance as a last
// resort when no structured pattern matched.
var streetSuffixes = []string{"Drive", "Street", "Highway", "Road", "Avenue", "Boulevard"}

// extractLocation tries, in order: a capitalized "City, State[, Street]"
// pattern, an "on/at/near <phrase>" pattern, and a street-suffix scan over
// the original-case utterance. The first non-empty match wins.
func extractLocation(text string) (string, bool) {
	if m := cityState.FindStringSubmatch(text); m != nil {
		parts := []string{m[1], m[2]}
		if s := strings.TrimSpace(m[3]); s != "" {
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), true
	}

	if m := prepositionPhrase.FindStringSubmatch(text); m != nil {
		phrase := strings.TrimSpace(m[1])
		// A phrase with no capitalised token is almost never a place name
		// ("on fire", "at night"); require one to fail closed.
		if phrase != "" && strings.ToLower(phrase) != phrase {
			return phrase, true
		}
	}

	if loc := scanStreetSuffix(text); loc != "" {
		return loc, true
	}

	return "", false
}

// scanStreetSuffix looks for a street-suffix word and reassembles the
// capitalised tokens leading up to it, plus a trailing "in <City>" clause
// when present.
func scanStreetSuffix(text string) string {
	words := strings.Fields(text)
	clean := make([]string, len(words))
	for i, w := range words {
		clean[i] = strings.Trim(w, ".,!?;")
	}

	for i, w := range clean {
		if !isStreetSuffix(w) {
			continue
		}

		// Walk backwards over contiguous capitalised tokens.
		start := i
		for start > 0 && isCapitalized(clean[start-1]) {
			start--
		}
		if start == i {
			// A suffix with no preceding name is not a location.
			continue
		}

		parts := append([]string{}, clean[start:i+1]...)

		// Trailing "in Dallas" style clause.
		if i+1 < len(clean) && strings.EqualFold(clean[i+1], "in") {
			var city []string
			for j := i + 2; j < len(clean) && isCapitalized(clean[j]); j++ {
				city = append(city, clean[j])
			}
			if len(city) > 0 {
				parts = append(parts, "in")
				parts = append(parts, city...)
			}
		}

		return strings.Join(parts, " ")
	}
	return ""
}

func isStreetSuffix(w string) bool {
	for _, s := range streetSuffixes {
		if w == s {
			return true
		}
	}
	return false
}

func isCapitalized(w string) bool {
	if w == "" {
		return false
	}
	c := w[0]
	return c >= 'A' && c <= 'Z'
}
