package domain

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Wall drops the location of t, keeping its clock reading. Reservation and order
// timestamps are stored as restaurant wall-clock time.
func Wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Day truncates a wall-clock time to midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDateTime parses an ISO 8601 date or date-time. Values carrying an offset are
// converted to loc before the wall clock is taken. dateOnly is set for bare dates.
func ParseDateTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, InvalidDateError{Value: s}
	}
	if loc == nil {
		loc = time.UTC
	}

	if v, err := time.Parse(DateLayout, s); err == nil {
		return v, true, nil
	}

	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Wall(v.In(loc)), false, nil
	}

	for _, layout := range naiveLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, false, nil
		}
	}

	return time.Time{}, false, InvalidDateError{Value: s}
}

// ParseDate parses a date or date-time and keeps only the calendar day.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, _, err := ParseDateTime(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// SlotPolicy decides when two reservations for the same table collide.
// A zero Window means calendar-day granularity.
type SlotPolicy struct {
	Window time.Duration
}

// Span returns the half-open interval [from, to) of reservation times that
// collide with a booking at `at`. Date-only queries always span the whole day.
func (p SlotPolicy) Span(at time.Time, dateOnly bool) (from, to time.Time) {
	if p.Window <= 0 || dateOnly {
		from = Day(at)
		return from, from.AddDate(0, 0, 1)
	}

	// postgres timestamps have microsecond precision; exactly one window apart is allowed.
	return at.Add(-p.Window + time.Microsecond), at.Add(p.Window)
}

func (p SlotPolicy) String() string {
	if p.Window <= 0 {
		return "day"
	}
	return p.Window.String()
}

// AffectedDays lists the calendar days whose availability answers can change when
// a booking at `at` is added or removed.
func (p SlotPolicy) AffectedDays(at time.Time) []time.Time {
	if p.Window <= 0 {
		return []time.Time{Day(at)}
	}

	var out []time.Time
	for d, last := Day(at.Add(-p.Window)), Day(at.Add(p.Window)); !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
