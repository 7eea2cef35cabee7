// Package clock lets services read "now" and "today" from an injectable source.
package clock

import (
	"sync"
	"time"

	"github.com/Leganyst/hotel-reservations/internal/calendar"
)

type Clock interface {
	Now() time.Time
	// Location is the hotel's local time zone.
	Location() *time.Location
}

// Today is the hotel-local calendar day of c.Now(), as a UTC midnight date.
func Today(c Clock) time.Time {
	return calendar.Day(c.Now().In(c.Location()))
}

type systemClock struct {
	loc *time.Location
}

func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time             { return time.Now() }
func (c systemClock) Location() *time.Location { return c.loc }

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

func NewFixed(now time.Time, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.UTC
	}
	return &Fixed{now: now, loc: loc}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fixed) Location() *time.Location { return c.loc }

func (c *Fixed) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
