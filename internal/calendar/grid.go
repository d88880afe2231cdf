package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ViewMode selects the calendar grid shape.
type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

// monthCells is six Monday-start weeks, enough for any month.
const monthCells = 42

// ParseViewMode accepts the English and Spanish mode names.
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "dia", "día":
		return ViewDay, nil
	case "week", "semana", "":
		return ViewWeek, nil
	case "month", "mes":
		return ViewMonth, nil
	}
	return "", fmt.Errorf("calendar: unknown view mode %q", s)
}

// MondayOnOrBefore returns the Monday of the week containing d.
func MondayOnOrBefore(d DateKey) DateKey {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Grid returns the dates shown for anchor in the given mode: one date for a
// day, seven from Monday for a week and 42 from the Monday on or before the
// first of the month for a month.
func Grid(anchor DateKey, mode ViewMode) []DateKey {
	var start DateKey
	var n int
	switch mode {
	case ViewDay:
		return []DateKey{anchor}
	case ViewMonth:
		start, n = MondayOnOrBefore(NewDateKey(anchor.Year, anchor.Month, 1)), monthCells
	default:
		start, n = MondayOnOrBefore(anchor), 7
	}
	out := make([]DateKey, n)
	for i := range out {
		out[i] = start.AddDays(i)
	}
	return out
}

// Bucket groups items onto grid dates by the calendar date of at(item) in
// loc. Items outside the grid are dropped; each bucket is sorted by time.
func Bucket[T any](grid []DateKey, items []T, at func(T) time.Time, loc *time.Location) map[DateKey][]T {
	out := make(map[DateKey][]T, len(grid))
	for _, d := range grid {
		out[d] = nil
	}
	for _, item := range items {
		key := KeyOf(at(item), loc)
		if _, ok := out[key]; ok {
			out[key] = append(out[key], item)
		}
	}
	for key := range out {
		bucket := out[key]
		sort.SliceStable(bucket, func(i, j int) bool { return at(bucket[i]).Before(at(bucket[j])) })
	}
	return out
}
