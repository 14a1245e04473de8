package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format.
const DateLayout = "2006-01-02"

// Supported calendar year bounds for analytics and forecasting queries.
const (
	MinYear = 1900
	MaxYear = 2200
)

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date, rejecting values that would be normalized by time.Date
// (for example April 31).
func NewDate(year int, month time.Month, day int) (time.Time, error) {
	if err := ValidateYear(year); err != nil {
		return time.Time{}, err
	}
	if err := ValidateMonth(month); err != nil {
		return time.Time{}, err
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, &RangeError{Field: "date", Value: fmt.Sprintf("%04d-%02d-%02d", year, int(month), day), Reason: "no such calendar day"}
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD string into a validated calendar date.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if !isDateShape(v) {
		return time.Time{}, &RangeError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	y, _ := strconv.Atoi(v[0:4])
	m, _ := strconv.Atoi(v[5:7])
	d, _ := strconv.Atoi(v[8:10])
	return NewDate(y, time.Month(m), d)
}

// isDateShape reports whether v is exactly four, two and two digits joined by dashes.
func isDateShape(v string) bool {
	if len(v) != len(DateLayout) {
		return false
	}
	for i := 0; i < len(v); i++ {
		if i == 4 || i == 7 {
			if v[i] != '-' {
				return false
			}
			continue
		}
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

// ParseMonth maps an English month name (full or three-letter, any case) or number to a month.
func ParseMonth(name string) (time.Month, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if n == full || n == full[:3] {
			return m, nil
		}
	}
	var num int
	if _, err := fmt.Sscanf(n, "%d", &num); err == nil && fmt.Sprint(num) == n {
		if err := ValidateMonth(time.Month(num)); err != nil {
			return 0, err
		}
		return time.Month(num), nil
	}
	return 0, &RangeError{Field: "month", Value: name, Reason: "unrecognized month"}
}

// ValidateMonth rejects months outside 1..12.
func ValidateMonth(m time.Month) error {
	if m < time.January || m > time.December {
		return &RangeError{Field: "month", Value: fmt.Sprint(int(m)), Reason: "must be 1..12"}
	}
	return nil
}

// ValidateYear rejects years outside [MinYear, MaxYear].
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return &RangeError{Field: "year", Value: fmt.Sprint(year), Reason: fmt.Sprintf("must be %d..%d", MinYear, MaxYear)}
	}
	return nil
}
