package utils

import (
	"fmt"
	"time"
)

// StartOfDay returns the date with the time set to 00:00, keeping the timezone.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartNextDay returns the next day at 00:00, keeping the timezone.
func StartNextDay(t time.Time) time.Time {
	newDate := t.AddDate(0, 0, 1)
	return StartOfDay(newDate)
}

// DaysBetween returns whole calendar days from a to b. Negative when b is
// before a. Both sides are truncated to midnight so the result does not drift
// with the time of day.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// DaysUntil returns whole calendar days from today until t, never negative.
func DaysUntil(t time.Time) int {
	days := DaysBetween(time.Now(), t)
	if days < 0 {
		return 0
	}
	return days
}

// ParseDate parses an RFC3339 date, falling back to a naive datetime and then
// a bare date in the local timezone.
func ParseDate(str string) (time.Time, error) {
	parsedDate, err := time.Parse(time.RFC3339, str)
	if err != nil {
		parsedDate, err = time.ParseInLocation("2006-01-02T15:04:05", str, time.Local)
		if err != nil {
			parsedDate, err = time.ParseInLocation("2006-01-02", str, time.Local)
			if err != nil {
				return time.Time{}, fmt.Errorf("failed to parse time: %v", err)
			}
		}
	}

	return parsedDate, nil
}
