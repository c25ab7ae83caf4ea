package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISO-8601 calendar dates with an optional time of day, in extended
// (2023-01-01T12:00:00+02:00) or basic (20230101T120000+0200) format.
// Minutes, seconds and the fraction are optional from the right; the zone
// may be Z, ±hh, ±hhmm or ±hh:mm. A date or time without a zone is UTC.
var (
	isoExtended = regexp.MustCompile(
		`^(\d{4})-(\d{2})-(\d{2})` +
			`(?:[T ](\d{2})(?::(\d{2})(?::(\d{2})(?:[.,](\d+))?)?)?` +
			`(Z|[+-]\d{2}(?::?\d{2})?)?)?$`)
	isoBasic = regexp.MustCompile(
		`^(\d{4})(\d{2})(\d{2})` +
			`(?:T(\d{2})(?:(\d{2})(?:(\d{2})(?:[.,](\d+))?)?)?` +
			`(Z|[+-]\d{2}(?::?\d{2})?)?)?$`)
)

// parseTimestamp parses s as an ISO-8601 date or date-time.
func parseTimestamp(s string) (time.Time, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	m := isoExtended.FindStringSubmatch(in)
	if m == nil {
		m = isoBasic.FindStringSubmatch(in)
	}
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, expected ISO-8601 (e.g. 2023-01-01T12:00:00Z)", s)
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour := atoiOrZero(m[4])
	minute := atoiOrZero(m[5])
	sec := atoiOrZero(m[6])
	nsec := fractionToNanos(m[7])

	if month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) ||
		hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: field out of range", s)
	}

	loc, err := parseZone(m[8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc), nil
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// fractionToNanos keeps nanosecond precision and drops any finer digits.
func fractionToNanos(frac string) int {
	if frac == "" {
		return 0
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	n, _ := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	return n
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseZone(z string) (*time.Location, error) {
	if z == "" || z == "Z" {
		return time.UTC, nil
	}
	sign := 1
	if z[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(z[1:], ":", "")
	hh, _ := strconv.Atoi(digits[:2])
	mm := 0
	if len(digits) == 4 {
		mm, _ = strconv.Atoi(digits[2:])
	}
	if hh > 23 || mm > 59 {
		return nil, fmt.Errorf("zone offset %q out of range", z)
	}
	return time.FixedZone("", sign*(hh*3600+mm*60)), nil
}
