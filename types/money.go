// Package types provides common value types used across dues.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Money represents a monetary value in the smallest currency unit (cents).
// All arithmetic is integer-only, no floating point.
//
// Examples:
//   - Money(5000) = 50.00
//   - Money(5250) = 52.50
type Money int64

// maxWhole is the largest whole part that still fits int64 once scaled by
// 100 and given two fractional digits. Money and Percent share it.
const maxWhole = (math.MaxInt64 - 99) / 100

// Cents creates a Money value from minor units.
func Cents(cents int64) Money { return Money(cents) }

// Units creates a Money value from whole major units.
func Units(units int64) Money { return Money(units * 100) }

// ParseMoney parses a decimal string ("50", "52.5", "52.50", "-3.25") into Money.
// More than two fractional digits is an error; no rounding is performed.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: parse %q: empty string", s)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("money: parse %q: no digits", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("money: parse %q: more than 2 decimal places", s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("money: parse %q: invalid character", s)
	}

	var major int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: parse %q: %w", s, err)
		}
		if v > maxWhole {
			return 0, fmt.Errorf("money: parse %q: %w", s, strconv.ErrRange)
		}
		major = v
	}

	for len(frac) < 2 {
		frac += "0"
	}
	minor, _ := strconv.ParseInt(frac, 10, 64) //nolint:errcheck // digits already validated

	amount := major*100 + minor
	if neg {
		amount = -amount
	}
	return Money(amount), nil
}

// MustParseMoney is like ParseMoney but panics on error. Use for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return int64(m) }

// Arithmetic operations

// Add adds two Money values.
func (m Money) Add(other Money) Money { return m + other }

// Subtract subtracts another Money value.
func (m Money) Subtract(other Money) Money { return m - other }

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money { return Money(int64(m) * qty) }

// Negate returns the negative of the Money value.
func (m Money) Negate() Money { return -m }

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m < 0 }

// Min returns the smaller of two Money values.
func (m Money) Min(other Money) Money {
	if m < other {
		return m
	}
	return other
}

// Max returns the larger of two Money values.
func (m Money) Max(other Money) Money {
	if m > other {
		return m
	}
	return other
}

// Formatting methods

// FormatMajor returns the major unit string: "52.50" for Money(5250).
func (m Money) FormatMajor() string {
	abs := int64(m)
	sign := ""
	if abs < 0 {
		abs = -abs
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// String returns the major unit representation.
func (m Money) String() string { return m.FormatMajor() }

// MarshalJSON encodes Money as a decimal string so no float ever carries an amount.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.FormatMajor())
}

// UnmarshalJSON accepts either a decimal string ("52.50") or a bare JSON number (52.5).
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Money) MarshalYAML() (any, error) {
	return m.FormatMajor(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Money) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseMoney(node.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum calculates the sum of multiple Money values.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
