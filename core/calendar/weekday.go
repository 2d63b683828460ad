package calendar

import (
	"strings"
	"time"
)

// Malay weekday names, indexed by time.Weekday.
var weekdays = [...]string{"AHAD", "ISNIN", "SELASA", "RABU", "KHAMIS", "JUMAAT", "SABTU"}

// SchoolDays are the days a report may be filed for.
var SchoolDays = []string{"ISNIN", "SELASA", "RABU", "KHAMIS", "JUMAAT"}

// Weekday returns the Malay name of t's weekday in Location.
func Weekday(t time.Time) string {
	return weekdays[t.In(Location).Weekday()]
}

// WeekdayOf returns the Malay weekday of a stored date string, "" when it cannot be parsed.
func WeekdayOf(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return Weekday(t)
}

// IsWeekday reports whether name is a Malay weekday name (any case).
func IsWeekday(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, d := range weekdays {
		if d == name {
			return true
		}
	}
	return false
}

func IsSchoolDay(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, d := range SchoolDays {
		if d == name {
			return true
		}
	}
	return false
}
