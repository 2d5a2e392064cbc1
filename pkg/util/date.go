package util

import (
	"strconv"
	"time"
)

const (
	// ISODate is the calendar date layout used by the provider API.
	ISODate = "2006-01-02"
	// CompactDate is the fixed 8-digit layout used inside cache keys.
	CompactDate = "20060102"
)

var dateLayouts = []string{ISODate, "2006/01/02", "2006-1-2", CompactDate, time.RFC3339}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date at midnight UTC.
func Today() time.Time { return Day(time.Now()) }

// ParseDate tries the known date layouts in order. Returns (day, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// ParseCompactDate parses exactly the 8-digit YYYYMMDD form.
func ParseCompactDate(s string) (time.Time, bool) {
	if len(s) != len(CompactDate) {
		return time.Time{}, false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(CompactDate, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
