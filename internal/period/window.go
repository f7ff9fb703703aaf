// Package period computes leaderboard window boundaries. The organizational
// day does not roll over at midnight: it starts at a fixed local cutoff hour
// (05:00 by default), so every window start is a cutoff instant, and a
// reference time earlier than today's cutoff still belongs to the previous
// period.
package period

import (
	"fmt"
	"time"
)

// DefaultCutoffHour is the local wall-clock hour at which a new day begins.
const DefaultCutoffHour = 5

// Kind identifies a leaderboard period.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Yearly  Kind = "yearly"
	AllTime Kind = "alltime"
)

// ParseKind validates a period name from the outside world.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Daily, Weekly, Monthly, Yearly, AllTime:
		return Kind(s), nil
	}
	return "", fmt.Errorf("invalid period %q", s)
}

// Window is a half-open [Start, End) instant range. End == nil means the
// window is unbounded above and extends through the reference instant.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End == nil || t.Before(*w.End)
}

// Calculator derives cutoff-aligned windows in a fixed time zone. The cutoff
// is a local wall-clock boundary: every instant it produces is built with
// time.Date in the configured location, so daylight-saving transitions never
// shift the effective hour.
type Calculator struct {
	loc        *time.Location
	cutoffHour int
}

// NewCalculator creates a calculator for the given zone and cutoff hour.
func NewCalculator(loc *time.Location, cutoffHour int) *Calculator {
	return &Calculator{loc: loc, cutoffHour: cutoffHour}
}

// cutoffOn returns the cutoff instant on the local calendar day holding t.
// The day components may be out of range; time.Date normalizes them.
func (c *Calculator) cutoffOn(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.cutoffHour, 0, 0, 0, c.loc)
}

// MostRecentCutoff returns the latest cutoff instant at or before ref.
// If ref is earlier than today's cutoff, that is yesterday's cutoff.
func (c *Calculator) MostRecentCutoff(ref time.Time) time.Time {
	local := ref.In(c.loc)
	y, m, d := local.Date()
	cutoff := c.cutoffOn(y, m, d)
	if ref.Before(cutoff) {
		cutoff = c.cutoffOn(y, m, d-1)
	}
	return cutoff
}

// NextCutoff returns the earliest cutoff instant strictly after ref.
func (c *Calculator) NextCutoff(ref time.Time) time.Time {
	local := ref.In(c.loc)
	y, m, d := local.Date()
	cutoff := c.cutoffOn(y, m, d)
	if !ref.Before(cutoff) {
		cutoff = c.cutoffOn(y, m, d+1)
	}
	return cutoff
}

// WindowFor computes the ranking window for kind relative to ref.
func (c *Calculator) WindowFor(kind Kind, ref time.Time) Window {
	local := ref.In(c.loc)
	y, m, d := local.Date()

	switch kind {
	case Daily:
		today := c.cutoffOn(y, m, d)
		if ref.Before(today) {
			// Still in yesterday's period; it closes at today's cutoff.
			return Window{Start: c.cutoffOn(y, m, d-1), End: &today}
		}
		return Window{Start: today}

	case Weekly:
		daysSinceMonday := int(local.Weekday()+6) % 7
		monday := c.cutoffOn(y, m, d-daysSinceMonday)
		if ref.Before(monday) {
			monday = c.cutoffOn(y, m, d-daysSinceMonday-7)
		}
		return Window{Start: monday}

	case Monthly:
		first := c.cutoffOn(y, m, 1)
		if ref.Before(first) {
			first = c.cutoffOn(y, m-1, 1)
		}
		return Window{Start: first}

	case Yearly:
		jan1 := c.cutoffOn(y, time.January, 1)
		if ref.Before(jan1) {
			jan1 = c.cutoffOn(y-1, time.January, 1)
		}
		return Window{Start: jan1}

	default: // AllTime
		return Window{Start: time.Unix(0, 0).UTC()}
	}
}
