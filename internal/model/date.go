package model

import "time"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form, the only date representation the
// server speaks. Zero-padded ISO dates order lexicographically, so Before and
// After compare the raw strings.
type Date string

// NewDate converts a time.Time to its calendar day.
func NewDate(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Today returns the current calendar day.
func Today() Date {
	return NewDate(time.Now())
}

// Time parses the date at midnight UTC.
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// Valid reports whether the date parses as YYYY-MM-DD.
func (d Date) Valid() bool {
	_, err := d.Time()
	return err == nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return string(d) > string(other)
}

// InRange reports whether d falls within [from, to]. An unset bound is open.
func (d Date) InRange(from, to Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// MonthWindow returns the first and last day of t's month.
func MonthWindow(t time.Time) (Date, Date) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return NewDate(first), NewDate(last)
}
