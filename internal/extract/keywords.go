package extract

import (
	"regexp"
	"strings"
)

// truckPattern maps an utterance keyword to its canonical label. The table is
// evaluated in order, most specific pattern first, so that "semi truck" is
// classified before the generic "semi" fallback can claim it.
type truckPattern struct {
	keyword string
	label   string
}

var truckPatterns = []truckPattern{
	{"18-wheeler", "18 Wheeler"},
	{"18 wheeler", "18 Wheeler"},
	{"eighteen wheeler", "18 Wheeler"},
	{"semi-truck", "Semi Truck"},
	{"semi truck", "Semi Truck"},
	{"tractor-trailer", "Tractor Trailer"},
	{"tractor trailer", "Tractor Trailer"},
	{"big rig", "Big Rig"},
	{"box truck", "Box Truck"},
	{"dump truck", "Dump Truck"},
	{"garbage truck", "Garbage Truck"},
	{"delivery truck", "Delivery Truck"},
	{"tow truck", "Tow Truck"},
	{"cement truck", "Cement Truck"},
	{"tanker", "Tanker"},
	{"flatbed", "Flatbed"},
	{"pickup truck", "Pickup Truck"},
	{"pickup", "Pickup Truck"},
	{"semi", "Semi"},
}

func extractTruckType(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range truckPatterns {
		if strings.Contains(lower, p.keyword) {
			return p.label, true
		}
	}
	return "", false
}

// injuryTrigger gates the injury vocabulary sweep: without one of these
// indicators the utterance is not about an injury at all.
var injuryTrigger = regexp.MustCompile(`(?i)\b(hurt|hurts|hurting|pain|painful|injur\w*|broke|broken|fracture\w*|whiplash|bleeding|sore|ache|aching)\b`)

// injuryVocabulary is the fixed set of anatomical and injury terms reported
// in the extracted value. Matched as whole words, case-insensitively.
var injuryVocabulary = []string{
	"neck", "back", "head", "shoulder", "arm", "leg", "knee", "wrist",
	"ankle", "hip", "chest", "rib", "ribs", "spine", "hand", "foot",
	"whiplash", "concussion", "fracture",
}

var injuryTermPatterns = compileWordPatterns(injuryVocabulary)

// extractInjuries returns every vocabulary term present in the utterance,
// title-cased and comma-joined, but only when the utterance carries an
// injury-indicating keyword.
func extractInjuries(text string) (string, bool) {
	if !injuryTrigger.MatchString(text) {
		return "", false
	}

	var found []string
	seen := make(map[string]bool)
	for i, re := range injuryTermPatterns {
		if !re.MatchString(text) {
			continue
		}
		term := titleCase(injuryVocabulary[i])
		// "rib" and "ribs" both map to Rib-family terms; keep the first.
		key := strings.TrimSuffix(strings.ToLower(term), "s")
		if seen[key] {
			continue
		}
		seen[key] = true
		found = append(found, term)
	}

	if len(found) == 0 {
		return "", false
	}
	return strings.Join(found, ", "), true
}

// MergeInjuries appends the terms of extracted onto existing, skipping any
// term already present by case-insensitive substring containment. Used by
// callers because injuriesSustained accumulates across utterances instead of
// being set once.
func MergeInjuries(existing, extracted string) string {
	if existing == "" {
		return extracted
	}
	lowerExisting := strings.ToLower(existing)
	merged := existing
	for _, term := range strings.Split(extracted, ", ") {
		term = strings.TrimSpace(term)
		if term == "" || strings.Contains(lowerExisting, strings.ToLower(term)) {
			continue
		}
		merged += ", " + term
		lowerExisting += ", " + strings.ToLower(term)
	}
	return merged
}

// Police report classification. Yes-keywords are checked first; No-keywords
// only count when no Yes-keyword matched in the same utterance.
var (
	policeContext = regexp.MustCompile(`(?i)\b(police|report|officer|cop|cops|trooper)\b`)
	policeYes     = regexp.MustCompile(`(?i)\b(yes|yeah|yep|yup|they did|they filed|filed one|filed it|officer filed|police came|took a report|made a report|wrote a report|there is a report)\b`)
	policeNo      = regexp.MustCompile(`(?i)\b(no|nope|not|never|didn't|did not|don't think|wasn't)\b`)

	// Without police/report context, a denial only counts when the utterance
	// opens with a bare negation. A sentence that merely contains "no" or
	// "not" ("no idea really") is not an answer about a report.
	policeBareNo = regexp.MustCompile(`(?i)^\s*(no|nope|nah)\b\s*(?:[,.!?]|$)`)
)

// shortAnswerLimit bounds how many words a bare "yes"/"no" style answer may
// have before it needs explicit police/report context to count.
const shortAnswerLimit = 5

func extractPoliceReport(text string) (string, bool) {
	inContext := policeContext.MatchString(text)
	if !inContext && len(strings.Fields(text)) > shortAnswerLimit {
		return "", false
	}

	if policeYes.MatchString(text) {
		return "Yes", true
	}
	if inContext && policeNo.MatchString(text) {
		return "No", true
	}
	if policeBareNo.MatchString(text) {
		return "No", true
	}
	return "", false
}

func compileWordPatterns(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}
