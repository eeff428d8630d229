package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the fixed serialization for every extracted calendar date.
const dateLayout = "2006-01-02"

var (
	relativeAgo  = regexp.MustCompile(`\b(\d{1,3}|a|an|one|two|three|four|five|six|seven|eight|nine|ten)\s+(day|week|month|year)s?\s+ago\b`)
	monthNameDay = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	numericDate  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
)

// smallNumbers maps spelled-out counts used in relative date expressions.
var smallNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// extractDate resolves relative and absolute date expressions in text against
// ref. Anything ambiguous or unrecognised yields absence, never a guess.
func extractDate(text string, ref time.Time) (string, bool) {
	lower := strings.ToLower(text)
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())

	// Relative expressions first: they are unambiguous given ref.
	if strings.Contains(lower, "today") {
		return ref.Format(dateLayout), true
	}
	if strings.Contains(lower, "yesterday") {
		return ref.AddDate(0, 0, -1).Format(dateLayout), true
	}
	if strings.Contains(lower, "last week") {
		return ref.AddDate(0, 0, -7).Format(dateLayout), true
	}
	if strings.Contains(lower, "last month") {
		return ref.AddDate(0, -1, 0).Format(dateLayout), true
	}
	if strings.Contains(lower, "last year") {
		return ref.AddDate(-1, 0, 0).Format(dateLayout), true
	}

	if m := relativeAgo.FindStringSubmatch(lower); m != nil {
		n, ok := smallNumbers[m[1]]
		if !ok {
			parsed, err := strconv.Atoi(m[1])
			if err != nil {
				return "", false
			}
			n = parsed
		}
		var d time.Time
		switch m[2] {
		case "day":
			d = ref.AddDate(0, 0, -n)
		case "week":
			d = ref.AddDate(0, 0, -7*n)
		case "month":
			d = ref.AddDate(0, -n, 0)
		case "year":
			d = ref.AddDate(-n, 0, 0)
		default:
			return "", false
		}
		return d.Format(dateLayout), true
	}

	// Month-name dates: "November 3rd", "June 12, 2024". Without an explicit
	// year, pick the most recent occurrence not after ref.
	if m := monthNameDay.FindStringSubmatch(lower); m != nil {
		month := monthsByName[m[1]]
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			return "", false
		}
		year := ref.Year()
		if m[3] != "" {
			year, err = strconv.Atoi(m[3])
			if err != nil {
				return "", false
			}
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, ref.Location())
		if d.Month() != month || d.Day() != day {
			// time.Date normalised an impossible day (e.g. February 30).
			return "", false
		}
		if m[3] == "" && d.After(ref) {
			d = d.AddDate(-1, 0, 0)
		}
		return d.Format(dateLayout), true
	}

	// Numeric D/M/Y.
	if m := numericDate.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return "", false
		}
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, ref.Location())
		if int(d.Month()) != month || d.Day() != day {
			return "", false
		}
		return d.Format(dateLayout), true
	}

	return "", false
}
