package models

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the on-disk due date format.
const DateLayout = "2006-01-02"

const (
	minYear = 1900
	maxYear = 2100
)

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DateParseError is returned when a due date does not parse as YYYY-MM-DD.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid due date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form with a
// year between 1900 and 2100.
func ValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i == 4 || i == 7 {
			continue
		}
		if c := s[i]; c < '0' || c > '9' {
			return false
		}
	}

	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return false
	}
	month, err := strconv.Atoi(s[5:7])
	if err != nil {
		return false
	}
	day, err := strconv.Atoi(s[8:10])
	if err != nil {
		return false
	}

	if year < minYear || year > maxYear {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}

	days := daysInMonth[month-1]
	if month == 2 && isLeapYear(year) {
		days = 29
	}

	return day >= 1 && day <= days
}

func isLeapYear(year int) bool {
	return year%400 == 0 || (year%4 == 0 && year%100 != 0)
}

// ParseDueDate parses a due date string in YYYY-MM-DD format.
func ParseDueDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &DateParseError{Value: s, Err: err}
	}
	return t, nil
}
