package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

var (
	dateLayouts = []string{
		"2006-01-02",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"02/01/2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"02-Jan-2006",
		"20060102",
	}
	monthLayouts = []string{
		"Jan-2006",
		"Jan 2006",
		"January-2006",
		"January 2006",
		"2006-01",
		"Jan-06",
		"01/2006",
	}

	rangeSeparator = regexp.MustCompile(`(?i)\s+(?:to|-|–|—)\s+`)
)

// excelEpoch is day zero of the 1900 date system (accounting for the
// fictitious 1900-02-29).
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the day-precision layouts seen in COUNTER headers and
// SUSHI responses.
func ParseDate(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, ok := excelSerial(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// excelSerial accepts plausible serial dates only: 1990-01-01 .. 2100-01-01.
func excelSerial(s string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 32874 || serial >= 73051 {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(serial)), true
}

// ParseMonth parses a month column header ("Jan-2011", "2011-01", an Excel
// serial date, or a full date) to the first day of that month.
func ParseMonth(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.MonthStart(t), true
		}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := excelSerial(s); ok {
			return domain.MonthStart(t), true
		}
		return time.Time{}, false
	}
	if t, err := ParseDate(s); err == nil {
		return domain.MonthStart(t), true
	}
	return time.Time{}, false
}

// ParsePeriod reads a "YYYY-MM-DD to YYYY-MM-DD" style range, tolerating a
// leading label, extra whitespace and month-precision bounds.
func ParsePeriod(s string) (domain.Period, error) {
	s = CleanCell(s)
	if i := strings.LastIndex(s, ":"); i >= 0 && !strings.Contains(s[:i], " to ") {
		// "Period covered by Report: 2011-01-01 to 2011-12-31"
		if rest := strings.TrimSpace(s[i+1:]); rest != "" {
			s = rest
		}
	}
	parts := rangeSeparator.Split(s, 2)
	if len(parts) != 2 {
		return domain.Period{}, fmt.Errorf("unrecognised period %q", s)
	}
	start, err := parseBound(parts[0])
	if err != nil {
		return domain.Period{}, err
	}
	end, err := parseBound(parts[1])
	if err != nil {
		return domain.Period{}, err
	}
	return domain.NewPeriod(start, end)
}

func parseBound(s string) (time.Time, error) {
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	if t, ok := ParseMonth(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised period bound %q", CleanCell(s))
}

// ParseCount reads a usage count, tolerating thousands separators, blanks
// and integral decimals ("12.0"). ok is false for an empty cell.
func ParseCount(s string) (n int, ok bool, err error) {
	s = CleanCell(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false, fmt.Errorf("invalid count %q", s)
	}
	return int(f), true, nil
}
