// Package calendar owns day-boundary math for the rating engine.
//
// Every day boundary and cutoff hour is evaluated in one canonical
// location, configured once at startup.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format of a Day.
const Layout = "2006-01-02"

// Clock returns the current instant.
type Clock func() time.Time

// Calendar resolves instants to civil days in its location.
type Calendar struct {
	loc        *time.Location
	cutoffHour int
	now        Clock
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithLocation sets the canonical location. nil keeps UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithCutoffHour sets the hour after which same-day edits are penalized.
func WithCutoffHour(hour int) Option {
	return func(c *Calendar) {
		if hour >= 0 && hour <= 23 {
			c.cutoffHour = hour
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(c *Calendar) {
		if clock != nil {
			c.now = clock
		}
	}
}

// New creates a Calendar. Defaults: UTC, cutoff 06:00, wall clock.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		loc:        time.UTC,
		cutoffHour: 6,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the canonical location.
func (c *Calendar) Location() *time.Location { return c.loc }

// CutoffHour returns the configured cutoff hour.
func (c *Calendar) CutoffHour() int { return c.cutoffHour }

// Now returns the current instant in the canonical location.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current civil day.
func (c *Calendar) Today() Day { return c.DayOf(c.Now()) }

// DayOf returns the civil day containing t.
func (c *Calendar) DayOf(t time.Time) Day {
	t = t.In(c.loc)
	return Day{start: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)}
}

// Parse reads a YYYY-MM-DD string as a day in the canonical location.
func (c *Calendar) Parse(s string) (Day, error) {
	t, err := time.ParseInLocation(Layout, s, c.loc)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{start: t}, nil
}

// Cutoff returns the cutoff instant on day d.
func (c *Calendar) Cutoff(d Day) time.Time {
	return d.start.Add(time.Duration(c.cutoffHour) * time.Hour)
}

// Day is a civil calendar day. The zero value is not a valid day.
type Day struct {
	start time.Time
}

// String formats d as YYYY-MM-DD.
func (d Day) String() string { return d.start.Format(Layout) }

// Start is local midnight opening the day.
func (d Day) Start() time.Time { return d.start }

// End is local midnight closing the day (exclusive).
func (d Day) End() time.Time { return d.Next().start }

// Next returns the following day. AddDate keeps DST transitions on midnight.
func (d Day) Next() Day { return Day{start: d.start.AddDate(0, 0, 1)} }

// Prev returns the preceding day.
func (d Day) Prev() Day { return Day{start: d.start.AddDate(0, 0, -1)} }

// AddDays shifts d by n days.
func (d Day) AddDays(n int) Day { return Day{start: d.start.AddDate(0, 0, n)} }

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool { return d.start.Before(o.start) }

// Equal reports whether d and o are the same day.
func (d Day) Equal(o Day) bool { return d.start.Equal(o.start) }

// DaysInMonth returns the length of d's month.
func (d Day) DaysInMonth() int {
	first := time.Date(d.start.Year(), d.start.Month(), 1, 0, 0, 0, 0, d.start.Location())
	return first.AddDate(0, 1, -1).Day()
}

// DaysBetween returns the number of whole days from a to b, or 0 when b is
// not after a. Counting civil dates in UTC keeps DST days at one.
func DaysBetween(a, b Day) int {
	civil := func(d Day) time.Time {
		y, m, dd := d.start.Date()
		return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	}
	n := int(civil(b).Sub(civil(a)).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Window is the day a score is computed over. A closed window belongs to a
// fully elapsed day; a live window is today and may still change.
type Window struct {
	Day    Day
	Closed bool
}

// Closed returns the window of a fully elapsed day.
func Closed(d Day) Window { return Window{Day: d, Closed: true} }

// Live returns the window of the current day.
func Live(d Day) Window { return Window{Day: d} }

// From is the inclusive lower bound of the window.
func (w Window) From() time.Time { return w.Day.Start() }

// To is the exclusive upper bound of the window.
func (w Window) To() time.Time { return w.Day.End() }

// Kind labels the window for logs and metrics.
func (w Window) Kind() string {
	if w.Closed {
		return "closed"
	}
	return "live"
}
