// Package core provides money parsing and handling utilities.
//
// This file contains the Money value type and the parser used by the HTTP
// and CLI surfaces to turn user-supplied amounts into minor units.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer minor currency units.
type Money struct {
	Units int64
}

// M is shorthand for Money{Units: u}.
func M(u int64) Money {
	return Money{Units: u}
}

func (m Money) Add(o Money) Money { return Money{Units: m.Units + o.Units} }
func (m Money) Sub(o Money) Money { return Money{Units: m.Units - o.Units} }

// Min returns the smaller of m and o.
func (m Money) Min(o Money) Money {
	if o.Units < m.Units {
		return o
	}
	return m
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.Units < 0 {
		return Money{}
	}
	return m
}

func (m Money) IsPositive() bool { return m.Units > 0 }
func (m Money) IsZero() bool     { return m.Units == 0 }

// String renders the amount with comma thousands separators, e.g. "12,000,000".
func (m Money) String() string {
	n := m.Units
	if n < 0 {
		return "-" + Money{Units: -n}.String()
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ParseAmount converts a user-supplied decimal string to whole minor units.
//
// Thousands separators ("12,000,000" or "12.000.000") and surrounding
// whitespace are accepted. Fractions are rounded half-up. The result must be
// strictly positive.
//
// Examples:
//
//	ParseAmount("1000000")    -> 1000000, nil
//	ParseAmount("12,000,000") -> 12000000, nil
//	ParseAmount("1500.6")     -> 1501, nil
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Money{}, ErrInvalidAmount
	}
	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(0)
	if !d.IsPositive() || !d.IsInteger() {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(decimal.NewFromInt(1<<62)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Units: d.IntPart()}, nil
}

// normalizeSeparators strips grouping separators. A separator followed by
// exactly three digits, repeated, is grouping; a single trailing separator
// with one or two digits is the decimal point.
func normalizeSeparators(s string) string {
	if strings.Count(s, ",") > 0 && strings.Count(s, ".") > 0 {
		// Both present: whichever comes last is the decimal point.
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	}
	for _, sep := range []string{",", "."} {
		parts := strings.Split(s, sep)
		if len(parts) < 2 {
			continue
		}
		grouped := true
		for _, p := range parts[1:] {
			if len(p) != 3 {
				grouped = false
				break
			}
		}
		if grouped {
			return strings.Join(parts, "")
		}
		if len(parts) == 2 {
			return parts[0] + "." + parts[1]
		}
	}
	return s
}
