package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies a calendar month. Month is a zero-based index
// (0 = January, 11 = December), matching how month pickers count.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the period containing t, in t's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month()) - 1}
}

// ParsePeriod parses "YYYY-MM" where MM is 01-12.
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil || len(y) != 4 {
		return Period{}, fmt.Errorf("invalid period year %q", y)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMonth, m)
	}
	return Period{Year: year, Month: month - 1}, nil
}

// Contains reports whether the calendar date falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month()-1 == p.Month
}

// Shift moves the period by n months, wrapping the month index and carrying
// into the year.
func (p Period) Shift(n int) Period {
	total := p.Year*12 + p.Month + n
	year := total / 12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	return Period{Year: year, Month: month}
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month+1)
}

// Label returns a human readable month name, e.g. "March 2024".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month+1).String(), p.Year)
}
