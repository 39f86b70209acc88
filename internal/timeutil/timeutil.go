// Package timeutil holds the small calendar helpers shared by the store,
// the scheduler and the editors.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

var ErrBadDate = errors.New("bad date string")

// FormatTime renders hour/minute as "HH:MM".
func FormatTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// FormatDate renders a calendar date as "YYYY-MM-DD".
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// DateOf renders t's calendar date as "YYYY-MM-DD".
func DateOf(t time.Time) string {
	return FormatDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate splits a "YYYY-MM-DD" string into calendar fields.
func ParseDate(s string) (year, month, day int, err error) {
	if !ValidDate(s) {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	if _, err := fmt.Sscanf(s, "%04d-%02d-%02d", &year, &month, &day); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return year, month, day, nil
}

// ValidDate reports whether s has the exact "YYYY-MM-DD" shape with
// in-range month and day fields.
func ValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	year := int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	month := int(s[5]-'0')*10 + int(s[6]-'0')
	day := int(s[8]-'0')*10 + int(s[9]-'0')
	if month < 1 || month > 12 {
		return false
	}
	return day >= 1 && day <= DaysInMonth(year, month)
}

// ParseClock splits "H:MM" or "HH:MM" into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("bad time string %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time out of range %q", s)
	}
	return hour, minute, nil
}

// DaysInMonth returns the number of days in the given month, accounting
// for leap years.
func DaysInMonth(year, month int) int {
	dm := [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	d := dm[((month-1)%12+12)%12]
	leap := (year%4 == 0 && year%100 != 0) || year%400 == 0
	if month == 2 && leap {
		d = 29
	}
	return d
}

// ClampDayMonth wraps day and month around their valid ranges, the way the
// date editor increments behave.
func ClampDayMonth(day, month *int, year int) {
	if *month < 1 {
		*month = 12
	} else if *month > 12 {
		*month = 1
	}
	maxd := DaysInMonth(year, *month)
	if *day < 1 {
		*day = maxd
	} else if *day > maxd {
		*day = 1
	}
}

// ClampClock wraps hour and minute around their valid ranges.
func ClampClock(hour, minute *int) {
	if *hour < 0 {
		*hour = 23
	}
	if *hour > 23 {
		*hour = 0
	}
	if *minute < 0 {
		*minute = 59
	}
	if *minute > 59 {
		*minute = 0
	}
}
