package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`\$?\d+\.\d{2}`)

// ExtractAmount returns the largest money-looking value in text, which on
// a receipt is usually the total.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, m := range amountPattern.FindAllString(text, -1) {
		v, err := decimal.NewFromString(strings.TrimPrefix(m, "$"))
		if err != nil {
			continue
		}
		if !found || v.GreaterThan(best) {
			best, found = v, true
		}
	}
	return best, found
}

const monthNames = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`

var (
	numericDate  = regexp.MustCompile(`(?:^|\D)(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})(?:\D|$)`)
	isoDate      = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	dayMonthDate = regexp.MustCompile(`(?i)(\d{1,2})\s(` + monthNames + `)\s(\d{2,4})`)
	monthDayDate = regexp.MustCompile(`(?i)(` + monthNames + `)\s(\d{1,2}),?\s(\d{2,4})`)
)

// ExtractDate finds the first date in text. Patterns are tried in order:
// 1/15/2023, 2023-01-15, 15 Jan 2023, Jan 15, 2023. For the first pattern
// the month comes first unless it cannot be a month.
func ExtractDate(text string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}

	if m := numericDate.FindStringSubmatch(text); m != nil {
		month, day := atoi(m[1]), atoi(m[2])
		if month > 12 && day <= 12 {
			month, day = day, month
		}
		if t, ok := makeDate(atoi(m[3]), month, day, loc); ok {
			return t, true
		}
	}
	if m := isoDate.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc); ok {
			return t, true
		}
	}
	if m := dayMonthDate.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(atoi(m[3]), monthNumber(m[2]), atoi(m[1]), loc); ok {
			return t, true
		}
	}
	if m := monthDayDate.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(atoi(m[3]), monthNumber(m[1]), atoi(m[2]), loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func makeDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if year < 100 {
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalises Feb 30 into March
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func monthNumber(name string) int {
	if len(name) < 3 {
		return 0
	}
	prefix := strings.ToLower(name[:3])
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()[:3]) == prefix {
			return int(m)
		}
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
