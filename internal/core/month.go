package core

import (
	"time"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// Month is a canonical "YYYY-MM" key. Keys are zero-padded so plain string
// comparison orders them chronologically.
type Month string

// MonthOf returns the month key of t in t's own location.
func MonthOf(t time.Time) Month {
	return Month(t.Format(monthLayout))
}

// ParseMonth parses a strict zero-padded "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	if len(s) != len(monthLayout) {
		return "", ErrInvalidMonth
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", ErrInvalidMonth
	}
	return MonthOf(t), nil
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic("invalid month " + s)
	}
	return m
}

func (m Month) String() string { return string(m) }

func (m Month) IsZero() bool { return m == "" }

func (m Month) Valid() bool {
	_, err := ParseMonth(string(m))
	return err == nil
}

// Start returns the first day of the month.
func (m Month) Start() Date {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return Date{}
	}
	return Date{Time: t}
}

// End returns the last day of the month.
func (m Month) End() Date {
	return m.Next().Start().AddDays(-1)
}

// Day returns the given day of the month, clamped to the month's length.
func (m Month) Day(day int) Date {
	start := m.Start()
	last := m.End().Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(start.Year(), start.Month(), day)
}

func (m Month) Prev() Month { return MonthOf(m.Start().AddDate(0, -1, 0)) }
func (m Month) Next() Month { return MonthOf(m.Start().AddDate(0, 1, 0)) }

func (m Month) Before(o Month) bool { return m < o }
func (m Month) After(o Month) bool  { return m > o }

// MonthRange returns every month from `from` to `to`, both inclusive.
// It returns nil when from is after to.
func MonthRange(from, to Month) []Month {
	if !from.Valid() || !to.Valid() {
		return nil
	}
	var out []Month
	for m := from; m <= to; m = m.Next() {
		out = append(out, m)
	}
	return out
}

// Clock abstracts the current time so month boundaries can be simulated.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Today returns the clock's current calendar day.
func Today(c Clock) Date {
	return DateOf(c.Now())
}

// CurrentMonth returns the clock's current month key.
func CurrentMonth(c Clock) Month {
	return Today(c).Key()
}
