package summary

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("start date is after end date")

const labelLayout = "Jan 2, 2006"

// Range is an inclusive span of local calendar days.
type Range struct {
	Start    civil.Date     `json:"start"`
	End      civil.Date     `json:"end"`
	Location *time.Location `json:"-"`
}

// NewRange builds a range from two instants, keeping only their calendar
// day in loc. A nil loc means time.Local.
func NewRange(start, end time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.Local
	}
	return NewDateRange(civil.DateOf(start.In(loc)), civil.DateOf(end.In(loc)), loc)
}

// NewDateRange builds a range from two calendar days.
func NewDateRange(start, end civil.Date, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.Local
	}
	if !start.IsValid() || !end.IsValid() {
		return Range{}, fmt.Errorf("NewDateRange: invalid date %s - %s", start, end)
	}
	if start.After(end) {
		return Range{}, fmt.Errorf("NewDateRange: %s > %s: %w", start, end, ErrInvalidRange)
	}
	return Range{Start: start, End: end, Location: loc}, nil
}

// ParseRange parses two YYYY-MM-DD days.
func ParseRange(start, end string, loc *time.Location) (Range, error) {
	s, err := civil.ParseDate(start)
	if err != nil {
		return Range{}, fmt.Errorf("ParseRange: start date: %w", err)
	}
	e, err := civil.ParseDate(end)
	if err != nil {
		return Range{}, fmt.Errorf("ParseRange: end date: %w", err)
	}
	return NewDateRange(s, e, loc)
}

// MonthToDate is the range from the first day of now's month up to and
// including now's day, in loc.
func MonthToDate(now time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	today := civil.DateOf(now.In(loc))
	first := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	return Range{Start: first, End: today, Location: loc}
}

// Day returns the local calendar day of t.
func (r Range) Day(t time.Time) civil.Date {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(t.In(loc))
}

// Contains reports whether t falls on a day inside the range.
func (r Range) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := r.Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days is the number of calendar days covered, both ends included.
func (r Range) Days() int {
	return r.End.DaysSince(r.Start) + 1
}

// Label renders the range as "Jan 2, 2006 - Jan 9, 2006".
func (r Range) Label() string {
	return formatDay(r.Start, labelLayout) + " - " + formatDay(r.End, labelLayout)
}

func formatDay(d civil.Date, layout string) string {
	return d.In(time.UTC).Format(layout)
}
