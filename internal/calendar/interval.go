package calendar

import (
	"errors"
	"time"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// DateRange is a stay interval [Start, End) at day granularity.
// Start is the check-in day, End the check-out day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to calendar days and requires End > Start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, ErrInvalidDateRange
	}
	r := DateRange{Start: Day(start), End: Day(end)}
	if !r.End.After(r.Start) {
		return DateRange{}, ErrInvalidDateRange
	}
	return r, nil
}

// Overlaps reports whether two half-open ranges share at least one night.
// Touching ranges (a.End == b.Start) do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether day d is a night of the range: Start <= d < End.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Equal compares by day value.
func (r DateRange) Equal(other DateRange) bool {
	return Day(r.Start).Equal(Day(other.Start)) && Day(r.End).Equal(Day(other.End))
}

// Nights is the number of whole days between Start and End.
func (r DateRange) Nights() int {
	return DaysBetween(r.Start, r.End)
}

// HasOverlap checks r against existing and returns the conflicting ranges.
func HasOverlap(r DateRange, existing []DateRange) (bool, []DateRange) {
	var conflicts []DateRange
	for _, e := range existing {
		if r.Overlaps(e) {
			conflicts = append(conflicts, e)
		}
	}
	return len(conflicts) > 0, conflicts
}

// Day drops the clock part and returns midnight UTC of t's calendar date.
// Dates are compared as plain dates, so the location of t is only used to
// read its year/month/day.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// StartOfDayIn returns midnight of day d in loc.
func StartOfDayIn(d time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	year, month, day := d.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
