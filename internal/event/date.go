package event

import (
	"fmt"
	"time"
)

const (
	isoDate     = "2006-01-02"
	compactDate = "20060102"
)

// Date is a calendar date with no clock and no timezone. Feed entries
// are all-day events, so a bare date avoids the usual time.Time
// pitfalls (a zone shift moving an event across midnight).
type Date struct {
	t time.Time
}

// ParseDate parses a date in strict YYYY-MM-DD form. Anything else,
// including other field orderings or missing zero-padding, is an error.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ISO formats the date as YYYY-MM-DD, the canonical storage form.
func (d Date) ISO() string {
	return d.t.Format(isoDate)
}

// Compact formats the date as YYYYMMDD, the iCalendar DATE value form.
func (d Date) Compact() string {
	return d.t.Format(compactDate)
}

// Year returns the four-digit year.
func (d Date) Year() int {
	return d.t.Year()
}

// Month returns the month.
func (d Date) Month() time.Month {
	return d.t.Month()
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}
