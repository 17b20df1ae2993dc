package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the calendar month t falls in, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// NewPeriod creates a Period from a year and a 1-12 month.
func NewPeriod(year, month int) Period {
	return Period{Year: year, Month: time.Month(month)}
}

// AddMonths returns the period n months later (earlier when n is negative),
// carrying into years.
func (p Period) AddMonths(n int) Period {
	idx := p.index() + n
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return Period{Year: y, Month: time.Month(m + 1)}
}

// MonthsUntil returns the number of months from p to q; negative when q is
// before p.
func (p Period) MonthsUntil(q Period) int {
	return q.index() - p.index()
}

func (p Period) Before(q Period) bool { return p.index() < q.index() }
func (p Period) After(q Period) bool  { return p.index() > q.index() }
func (p Period) Equal(q Period) bool  { return p.index() == q.index() }

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// End returns the last instant of the period in UTC.
func (p Period) End() time.Time {
	return time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
}

// Label is the human readable form used on chart axes, e.g. "Oct 2026".
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.Month.String()[:3], p.Year)
}

// String returns the canonical YYYY-MM form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// ParsePeriod parses the YYYY-MM form produced by String.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 ||
		!allDigits(parts[0]) || !allDigits(parts[1]) {
		return Period{}, ErrInvalidPeriod
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Period{}, ErrInvalidPeriod
	}
	return NewPeriod(y, m), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p Period) index() int {
	return p.Year*12 + int(p.Month) - 1
}
