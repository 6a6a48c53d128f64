package purchase

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"Jan 2, 2006, 3:04:05 PM MST",
	"Jan 2, 2006 3:04:05 PM MST",
	"Jan 2, 2006, 3:04:05 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// numeralDate picks "Y M D [h m [s]]" out of free text such as
// "2023年11月05日 20:15" or "purchased on 2023.11.05".
var numeralDate = regexp.MustCompile(`(\d{4})\D{1,3}(\d{1,2})\D{1,3}(\d{1,2})(?:\D{1,3}(\d{1,2})\D(\d{2})(?:\D(\d{2}))?)?`)

// ParseDate turns an imported date value into an instant. It accepts
// canonical timestamps, epoch seconds or milliseconds, a handful of common
// layouts and free text with embedded numerals. When nothing matches it
// returns now and false.
func ParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, false
	}

	if t, ok := parseEpoch(s); ok {
		return t, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if t, ok := parseNumerals(s); ok {
		return t, true
	}

	return now, false
}

// parseEpoch treats up to 10 digits as seconds and longer runs as milliseconds.
func parseEpoch(s string) (time.Time, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	if len(s) <= 10 {
		return time.Unix(n, 0).UTC(), true
	}

	return time.UnixMilli(n).UTC(), true
}

func parseNumerals(s string) (time.Time, bool) {
	m := numeralDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	n := make([]int, len(m))
	for i := 1; i < len(m); i++ {
		if m[i] == "" {
			continue
		}

		n[i], _ = strconv.Atoi(m[i])
	}

	year, month, day, hour, minute, sec := n[1], n[2], n[3], n[4], n[5], n[6]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}

	return t, true
}
