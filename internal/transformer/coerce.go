package transformer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned when a date field does not match M/D/YYYY.
var ErrInvalidDateFormat = errors.New("invalid date format")

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
// It lets hot paths skip strings.TrimSpace (and its allocation check) for the
// common already-clean case.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// ParseUSDate parses a month/day/year date such as "1/5/2015" or "01/05/2015".
//
// Exactly three numeric parts are required, the year must have four digits and
// the calendar date must exist (2/30/2015 is rejected). Errors wrap
// ErrInvalidDateFormat.
func ParseUSDate(s string) (time.Time, error) {
	if HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}

	var mdy [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
		}
		mdy[i] = n
	}
	m, d, y := mdy[0], mdy[1], mdy[2]

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	return t, nil
}

// ParseInt parses a base-10 integer. Values like "1031200.0", which some
// exports emit for integer columns, are accepted when the fraction is zero.
func ParseInt(s string) (int, error) {
	if HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse int %q: %w", s, err)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("parse int %q: fractional value", s)
	}
	return int(f), nil
}

// ParseFloat parses a decimal number, tolerating a leading "$" and thousands
// separators as they appear in price and volume columns.
func ParseFloat(s string) (float64, error) {
	if HasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	s = strings.TrimPrefix(s, "$")
	if strings.IndexByte(s, ',') >= 0 {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float %q: %w", s, err)
	}
	return f, nil
}
