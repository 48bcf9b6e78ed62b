// Package core provides money parsing and handling utilities.
//
// Amounts are carried as arbitrary-precision decimals so sums over a ledger
// never pick up binary floating point drift.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal currency amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// MoneyFromInt builds an amount from a whole number of units.
func MoneyFromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// ParseMoney converts a user-typed amount to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, the last one is the decimal separator and the other groups
// thousands, so "1.200,50" and "1,200.50" are both 1200.50. The result must
// be strictly positive.
//
// Examples:
//
//	ParseMoney("12.34")    -> 12.34
//	ParseMoney("12,34")    -> 12.34
//	ParseMoney("1.200,50") -> 1200.50
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return Money{}, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return Money{}, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{d: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) Decimal() decimal.Decimal { return m.d }

// String returns the plain decimal representation with two places.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// BRL formats the amount the way the app displays it, e.g. "R$ 1.234,56".
func (m Money) BRL() string {
	sign := ""
	d := m.d
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + frac
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}
