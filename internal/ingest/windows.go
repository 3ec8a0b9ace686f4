package ingest

import "time"

// YearRange returns the calendar years spanned by [start, end], inclusive.
func YearRange(start, end time.Time) []int {
	years := make([]int, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// ClampYearWindow clamps the global [start, end] range to the overlap with
// the given calendar year. When the year lies entirely outside the range the
// returned start is after the returned end.
func ClampYearWindow(start, end time.Time, year int) (time.Time, time.Time) {
	yearStart := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

	ws := yearStart
	if start.After(ws) {
		ws = start
	}
	we := yearEnd
	if end.Before(we) {
		we = end
	}
	return ws, we
}

// dateOnly truncates t to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
