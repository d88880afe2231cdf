// Package calendar provides timezone-safe calendar dates and the day, week
// and month grids used by the availability views.
package calendar

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// DateKey is a calendar date decomposed into year, month and day. Dates are
// always compared through these components, never through serialized
// timestamps.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf returns the calendar date of t as observed in loc.
func KeyOf(t time.Time, loc *time.Location) DateKey {
	if loc == nil {
		loc = t.Location()
	}
	y, m, d := t.In(loc).Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// NewDateKey normalizes out-of-range components (e.g. day 0) the way
// time.Date does.
func NewDateKey(year int, month time.Month, day int) DateKey {
	return KeyOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// ParseDateKey parses "2006-01-02".
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return DateKey{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return KeyOf(t, time.UTC), nil
}

func (d DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero value.
func (d DateKey) IsZero() bool { return d == DateKey{} }

// In returns midnight of d in loc.
func (d DateKey) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d DateKey) AddDays(n int) DateKey {
	return NewDateKey(d.Year, d.Month, d.Day+n)
}

// Weekday returns the day of the week of d.
func (d DateKey) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Compare returns -1, 0 or +1.
func (d DateKey) Compare(o DateKey) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d DateKey) Before(o DateKey) bool { return d.Compare(o) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
