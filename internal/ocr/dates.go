package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	minYear = 2000
	maxYear = 2030
)

var (
	dmyDate  = regexp.MustCompile(`\b(\d{1,2})[./-]\s?(\d{1,2})[./-]\s?(\d{4}|\d{2})\b`)
	ymdDate  = regexp.MustCompile(`\b(\d{4})[./-](\d{1,2})[./-](\d{1,2})\b`)
	textDate = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]{3,10})\.?\s+(\d{4})\b`)
	// receipt printers sometimes split the year: "025. 11.07" is 2025-11-07
	fragmentedDate = regexp.MustCompile(`\b0(\d{2})[.\s]+(\d{1,2})\.(\d{2})\b`)
	clockTime      = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\b`)
)

var romanianMonths = func() map[string]time.Month {
	names := [][]string{
		{"ianuarie", "ian"},
		{"februarie", "feb"},
		{"martie", "mar"},
		{"aprilie", "apr"},
		{"mai"},
		{"iunie", "iun"},
		{"iulie", "iul"},
		{"august", "aug"},
		{"septembrie", "sep", "sept"},
		{"octombrie", "oct"},
		{"noiembrie", "noi", "nov"},
		{"decembrie", "dec"},
	}
	m := make(map[string]time.Month)
	for i, aliases := range names {
		for _, a := range aliases {
			m[a] = time.Month(i + 1)
		}
	}
	return m
}()

// ParseDate parses a single date string in any of the formats Romanian
// documents use. Two-digit years below 50 are 20xx, others 19xx (and then
// rejected by the year window).
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := ymdDate.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	if m := dmyDate.FindStringSubmatch(s); m != nil {
		return build(expandYear(m[3]), m[2], m[1])
	}
	if m := textDate.FindStringSubmatch(Fold(s)); m != nil {
		mon, ok := romanianMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return build(m[3], strconv.Itoa(int(mon)), m[1])
	}
	return time.Time{}, false
}

// ExtractDates returns every plausible date in text, in order of appearance,
// without duplicates. Fragmented dates are only tried when nothing else matched.
func ExtractDates(text string) []time.Time {
	var out []time.Time
	seen := map[string]bool{}
	add := func(t time.Time, ok bool) {
		if !ok {
			return
		}
		k := t.Format(time.DateOnly)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, t)
	}

	for _, m := range ymdDate.FindAllStringSubmatch(text, -1) {
		add(build(m[1], m[2], m[3]))
	}
	for _, m := range dmyDate.FindAllStringSubmatch(text, -1) {
		add(build(expandYear(m[3]), m[2], m[1]))
	}
	for _, m := range textDate.FindAllStringSubmatch(Fold(text), -1) {
		if mon, ok := romanianMonths[strings.ToLower(m[2])]; ok {
			add(build(m[3], strconv.Itoa(int(mon)), m[1]))
		}
	}
	if len(out) == 0 {
		for _, m := range fragmentedDate.FindAllStringSubmatch(text, -1) {
			add(build("20"+m[1], m[2], m[3]))
		}
	}
	return out
}

// ExtractTime returns the first HH:MM[:SS] clock time in text.
func ExtractTime(text string) (string, bool) {
	for _, m := range clockTime.FindAllStringSubmatch(text, -1) {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h > 23 || mi > 59 {
			continue
		}
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
			if sec > 59 {
				continue
			}
		}
		return time.Date(0, 1, 1, h, mi, sec, 0, time.UTC).Format(time.TimeOnly), true
	}
	return "", false
}

func expandYear(y string) string {
	if len(y) != 2 {
		return y
	}
	n, _ := strconv.Atoi(y)
	if n < 50 {
		return strconv.Itoa(2000 + n)
	}
	return strconv.Itoa(1900 + n)
}

func build(y, m, d string) (time.Time, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	dd, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < minYear || year > maxYear || month < 1 || month > 12 || dd < 1 || dd > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), dd, 0, 0, 0, 0, time.UTC)
	// reject overflow such as 31.02
	if t.Day() != dd {
		return time.Time{}, false
	}
	return t, true
}
