package database

import (
	"fmt"
	"time"
)

// TimeLayout is how timestamps are written to TEXT columns.
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format used by target, received and invoice dates.
const DateLayout = "2006-01-02"

var parseLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05",
	DateLayout,
}

// Timestamp formats t for storage in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts every layout the driver or CURRENT_TIMESTAMP produces.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// DaysBetween returns whole days from a to b, truncating both to the calendar date.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
