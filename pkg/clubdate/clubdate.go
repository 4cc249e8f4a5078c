// Package clubdate formats calendar days the way the club's documents key them:
// en-US month/day/year with no padding, and "-" instead of "/" inside keys.
package clubdate

import (
	"strings"
	"time"
)

const (
	displayLayout = "1/2/2006"
	keyLayout     = "1-2-2006"
)

// Display returns the human date stored on point entries, e.g. "5/1/2024".
func Display(t time.Time) string {
	return t.Format(displayLayout)
}

// Key returns the document key for the day of t, e.g. "5-1-2024".
func Key(t time.Time) string {
	return t.Format(keyLayout)
}

// KeyToDisplay converts "5-1-2024" into "5/1/2024".
func KeyToDisplay(key string) string {
	return strings.ReplaceAll(key, "-", "/")
}

// Parse returns midnight of the keyed day in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(keyLayout, key, loc)
}

// Clock pins "now" to the club's timezone so every date key and display date
// is computed the same way regardless of where the server runs.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{loc: loc, now: time.Now}
}

// FixedClock always returns t. Used by tests.
func FixedClock(t time.Time) Clock {
	return Clock{loc: t.Location(), now: func() time.Time { return t }}
}

func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	if c.loc == nil {
		return c.now()
	}
	return c.now().In(c.loc)
}

func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Today is the date key of the current club day.
func (c Clock) Today() string {
	return Key(c.Now())
}
