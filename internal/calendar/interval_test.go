package calendar

import (
	"testing"
	"time"
)

func mustDay(t *testing.T, year int, month time.Month, day int) time.Time {
	t.Helper()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, start, end time.Time) DateRange {
	t.Helper()
	r, err := NewDateRange(start, end)
	if err != nil {
		t.Fatalf("NewDateRange(%v, %v): %v", start, end, err)
	}
	return r
}

func TestNewDateRange_RejectsEmptyAndReversed(t *testing.T) {
	d := mustDay(t, 2025, 6, 1)

	if _, err := NewDateRange(d, d); err == nil {
		t.Fatalf("expected error for empty range")
	}
	if _, err := NewDateRange(d.AddDate(0, 0, 1), d); err == nil {
		t.Fatalf("expected error for reversed range")
	}
	if _, err := NewDateRange(time.Time{}, d); err == nil {
		t.Fatalf("expected error for zero start")
	}
}

func TestNewDateRange_TruncatesClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	end := time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC)

	r := mustRange(t, start, end)
	if !r.Start.Equal(mustDay(t, 2025, 6, 1)) || !r.End.Equal(mustDay(t, 2025, 6, 4)) {
		t.Fatalf("unexpected range %v", r)
	}
	if r.Nights() != 3 {
		t.Fatalf("Nights() = %d, want 3", r.Nights())
	}
}

func TestDateRange_Overlaps(t *testing.T) {
	base := mustRange(t, mustDay(t, 2025, 6, 1), mustDay(t, 2025, 6, 4))

	cases := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"inside", mustRange(t, mustDay(t, 2025, 6, 2), mustDay(t, 2025, 6, 3)), true},
		{"overlap tail", mustRange(t, mustDay(t, 2025, 6, 3), mustDay(t, 2025, 6, 5)), true},
		{"overlap head", mustRange(t, mustDay(t, 2025, 5, 30), mustDay(t, 2025, 6, 2)), true},
		{"identical", base, true},
		{"touching after", mustRange(t, mustDay(t, 2025, 6, 4), mustDay(t, 2025, 6, 6)), false},
		{"touching before", mustRange(t, mustDay(t, 2025, 5, 29), mustDay(t, 2025, 6, 1)), false},
		{"disjoint", mustRange(t, mustDay(t, 2025, 7, 1), mustDay(t, 2025, 7, 2)), false},
	}

	for _, tc := range cases {
		if got := base.Overlaps(tc.other); got != tc.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
		if got := tc.other.Overlaps(base); got != tc.want {
			t.Fatalf("%s: reversed Overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasOverlap_ReturnsConflicts(t *testing.T) {
	r := mustRange(t, mustDay(t, 2025, 6, 2), mustDay(t, 2025, 6, 5))
	existing := []DateRange{
		mustRange(t, mustDay(t, 2025, 6, 1), mustDay(t, 2025, 6, 2)),
		mustRange(t, mustDay(t, 2025, 6, 4), mustDay(t, 2025, 6, 8)),
		mustRange(t, mustDay(t, 2025, 6, 5), mustDay(t, 2025, 6, 9)),
	}

	ok, conflicts := HasOverlap(r, existing)
	if !ok {
		t.Fatalf("expected overlap")
	}
	if len(conflicts) != 1 || !conflicts[0].Equal(existing[1]) {
		t.Fatalf("unexpected conflicts %v", conflicts)
	}
}

func TestDateRange_Contains(t *testing.T) {
	r := mustRange(t, mustDay(t, 2025, 6, 1), mustDay(t, 2025, 6, 4))

	if !r.Contains(mustDay(t, 2025, 6, 1)) {
		t.Fatalf("check-in day must be contained")
	}
	if !r.Contains(time.Date(2025, 6, 3, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("last night must be contained")
	}
	if r.Contains(mustDay(t, 2025, 6, 4)) {
		t.Fatalf("check-out day must not be contained")
	}
}

func TestDaysBetween(t *testing.T) {
	a := mustDay(t, 2025, 3, 1)
	if got := DaysBetween(a, mustDay(t, 2025, 3, 31)); got != 30 {
		t.Fatalf("DaysBetween = %d, want 30", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Fatalf("DaysBetween same day = %d, want 0", got)
	}
	if got := DaysBetween(a, mustDay(t, 2025, 2, 27)); got != -2 {
		t.Fatalf("DaysBetween backwards = %d, want -2", got)
	}
}

func TestStartOfDayIn(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	got := StartOfDayIn(mustDay(t, 2025, 6, 1), loc)

	want := time.Date(2025, 5, 31, 21, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("StartOfDayIn = %v, want %v", got, want)
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(mustDay(t, 2025, 3, 9)); got != "2025-03" {
		t.Fatalf("MonthKey = %q, want 2025-03", got)
	}
}
