// Package period implements calendar-month billing periods keyed "YYYY-MM".
//
// A Period is a value type: compare with ==, order with Compare/Before/After.
// Arithmetic works on an absolute month index, so adding months or measuring
// the distance between two periods is exact across year boundaries.
package period

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// keyLayout is the time layout of a period key.
const keyLayout = "2006-01"

// Period is one calendar month. The zero value is not a valid period.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Period struct {
	year  int
	month time.Month
}

// New returns the period for year/month, normalising out-of-range months
// (month 13 of 2025 is 2026-01).
func New(year int, month time.Month) Period {
	return fromIndex(year*12 + int(month) - 1)
}

// Of returns the calendar period containing t, in t's location.
func Of(t time.Time) Period {
	return Period{year: t.Year(), month: t.Month()}
}

// Parse parses a strict "YYYY-MM" key.
func Parse(s string) (Period, error) {
	if len(s) != len(keyLayout) {
		return Period{}, fmt.Errorf("period: parse %q: want YYYY-MM", s)
	}
	t, err := time.Parse(keyLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("period: parse %q: want YYYY-MM: %w", s, err)
	}
	return Of(t), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// MonthsBetween returns the number of months from a to b; negative when b is before a.
func MonthsBetween(a, b Period) int {
	return b.index() - a.index()
}

// Range returns every period from..to inclusive, or nil when from is after to.
func Range(from, to Period) []Period {
	n := MonthsBetween(from, to)
	if n < 0 {
		return nil
	}
	out := make([]Period, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from.AddMonths(i))
	}
	return out
}

// Year returns the calendar year.
func (p Period) Year() int { return p.year }

// Month returns the calendar month.
func (p Period) Month() time.Month { return p.month }

// IsZero reports whether p is the zero value.
func (p Period) IsZero() bool { return p.year == 0 && p.month == 0 }

// AddMonths returns the period n months after p (n may be negative).
func (p Period) AddMonths(n int) Period {
	return fromIndex(p.index() + n)
}

// Compare returns -1, 0 or +1.
func (p Period) Compare(other Period) int {
	switch a, b := p.index(), other.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly before other.
func (p Period) Before(other Period) bool { return p.Compare(other) < 0 }

// After reports whether p is strictly after other.
func (p Period) After(other Period) bool { return p.Compare(other) > 0 }

// Start returns the first instant of the period in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, loc)
}

// End returns the first instant of the following period in loc (exclusive bound).
func (p Period) End(loc *time.Location) time.Time {
	return p.AddMonths(1).Start(loc)
}

// Contains reports whether t, viewed in t's location, falls inside p.
func (p Period) Contains(t time.Time) bool {
	return Of(t) == p
}

// String returns the "YYYY-MM" key.
func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*p = Period{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer. Keys sort lexically in calendar order.
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner.
func (p *Period) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	case nil:
		*p = Period{}
		return nil
	default:
		return fmt.Errorf("period: cannot scan %T into Period", src)
	}
}

func (p Period) index() int {
	return p.year*12 + int(p.month) - 1
}

func fromIndex(i int) Period {
	year := i / 12
	month := i % 12
	if month < 0 {
		month += 12
		year--
	}
	return Period{year: year, month: time.Month(month + 1)}
}
