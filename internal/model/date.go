package model

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the canonical textual form of a Date (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a string cannot be parsed as a Date.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar date without a time-of-day or timezone component.
// It is comparable and can be used directly as a map key.
//
// Build dates with NewDate or ParseDate. A literal such as Date{2024, 1, 32}
// is not normalized and compares unequal to the day it denotes; call
// Normalize before using one as a key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for the given year, month and day. Out-of-range
// values are normalized the same way time.Date does (Jan 32 -> Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Normalize returns d with out-of-range components folded into a real
// calendar day. The zero Date is returned unchanged.
func (d Date) Normalize() Date {
	if d.IsZero() {
		return d
	}
	return NewDate(d.Year, d.Month, d.Day)
}

// DateOf returns the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Compare returns -1 if d is before other, +1 if after, and 0 if equal.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d == other }

// IsZero reports whether d is the zero Date (no year, month or day set).
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the date as a plain YYYY-MM-DD scalar.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML reads the raw scalar so that unquoted dates, which YAML
// would otherwise resolve as timestamps, are accepted.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: expected scalar, got yaml kind %d", ErrInvalidDate, value.Kind)
	}
	return d.UnmarshalText([]byte(value.Value))
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
