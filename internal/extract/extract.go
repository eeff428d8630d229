// Package extract implements rule-based extraction of intake fields from
// free-text call transcript utterances.
//
// Every extractor is a pure function from utterance text to an optional
// value: no I/O, no shared state, and no panics for malformed input — an
// utterance that does not match simply yields absence. Patterns for each
// field are evaluated in a fixed priority order and the first match wins.
//
// The package deliberately stays at the level of keyword tables and regular
// expressions over a small fixed vocabulary; it is not a general language
// understanding layer.
package extract

import (
	"regexp"
	"strings"
	"time"
)

// Field names for the intake record. These are the map keys used by the call
// session's lead fields.
const (
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldDate         = "dateOfAccident"
	FieldLocation     = "locationOfAccident"
	FieldTruckType    = "typeOfTruck"
	FieldInjuries     = "injuriesSustained"
	FieldPoliceReport = "policeReportFiled"
)

// Fields returns the full set of extractable field names in evaluation order.
func Fields() []string {
	return []string{
		FieldName,
		FieldPhone,
		FieldDate,
		FieldLocation,
		FieldTruckType,
		FieldInjuries,
		FieldPoliceReport,
	}
}

// Extract runs the extractor for field against text, resolving relative
// dates against the current wall clock. It returns the extracted value and
// whether anything matched.
func Extract(field, text string) (string, bool) {
	return ExtractAt(field, text, time.Now())
}

// ExtractAt is Extract with an explicit reference date for resolving
// relative expressions such as "3 days ago". Non-date fields ignore ref.
//
// Empty or whitespace-only text never matches any field.
func ExtractAt(field, text string, ref time.Time) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	switch field {
	case FieldName:
		return extractName(text)
	case FieldPhone:
		return extractPhone(text)
	case FieldDate:
		return extractDate(text, ref)
	case FieldLocation:
		return extractLocation(text)
	case FieldTruckType:
		return extractTruckType(text)
	case FieldInjuries:
		return extractInjuries(text)
	case FieldPoliceReport:
		return extractPoliceReport(text)
	}
	return "", false
}

// namePatterns match introductory phrasing. Order matters: the more explicit
// forms are tried before the looser "I'm X" contraction.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bthis is ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bcall me ([a-z]+(?: [a-z]+)?)\b`),
	regexp.MustCompile(`(?i)\bi'?m ([a-z]+(?: [a-z]+)?)\b`),
}

func extractName(text string) (string, bool) {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := titleCase(m[1])
		if name != "" {
			return name, true
		}
	}
	return "", false
}

// phoneCandidate matches runs of digits with common phone punctuation.
var phoneCandidate = regexp.MustCompile(`[\d][\d\s().+-]{6,}[\d]`)

// extractPhone accepts 10-digit numbers and 11-digit numbers with a leading
// country code of 1, returning the bare digit string.
func extractPhone(text string) (string, bool) {
	for _, cand := range phoneCandidate.FindAllString(text, -1) {
		var digits strings.Builder
		for _, r := range cand {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		d := digits.String()
		switch {
		case len(d) == 10:
			return d, true
		case len(d) == 11 && d[0] == '1':
			return d, true
		}
	}
	return "", false
}

// titleCase upper-cases the first letter of each space-separated token and
// lower-cases the rest.
func titleCase(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	for i, tok := range tokens {
		tokens[i] = strings.ToUpper(tok[:1]) + tok[1:]
	}
	return strings.Join(tokens, " ")
}
