package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Percent is a percentage expressed in basis points: 1% = 100, 2.5% = 250, 100% = 10000.
type Percent int64

// BasisPoints is the Percent value of 100%.
const BasisPoints Percent = 10000

// Pct creates a Percent from a whole percentage.
func Pct(whole int64) Percent { return Percent(whole * 100) }

// ParsePercent parses "5", "5%", "2.5" or "12.75%" into basis points.
func ParsePercent(s string) (Percent, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("percent: parse %q: no digits", s)
	}
	if len(frac) > 2 || !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("percent: parse %q: invalid value", s)
	}
	var w int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("percent: parse %q: %w", s, err)
		}
		if v > maxWhole {
			return 0, fmt.Errorf("percent: parse %q: %w", s, strconv.ErrRange)
		}
		w = v
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, _ := strconv.ParseInt(frac, 10, 64) //nolint:errcheck // digits already validated
	return Percent(w*100 + f), nil
}

// Of returns p percent of m, rounded half away from zero to the nearest minor unit.
func (p Percent) Of(m Money) Money {
	num := int64(m) * int64(p)
	q := num / int64(BasisPoints)
	r := num % int64(BasisPoints)
	if r < 0 {
		r = -r
	}
	if r*2 >= int64(BasisPoints) {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return Money(q)
}

// Ratio returns num/den as a Percent, truncated toward zero. A zero denominator yields 0.
func Ratio(num, den Money) Percent {
	if den == 0 {
		return 0
	}
	return Percent(int64(num) * int64(BasisPoints) / int64(den))
}

// String renders the percentage without trailing zeros: "5%", "2.5%", "12.75%".
func (p Percent) String() string {
	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole, frac := v/100, v%100
	switch {
	case frac == 0:
		return fmt.Sprintf("%s%d%%", sign, whole)
	case frac%10 == 0:
		return fmt.Sprintf("%s%d.%d%%", sign, whole, frac/10)
	default:
		return fmt.Sprintf("%s%d.%02d%%", sign, whole, frac)
	}
}

// MarshalJSON encodes the percentage as a string ("5%").
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts "5%", "2.5" or a bare number.
func (p *Percent) UnmarshalJSON(data []byte) error {
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
	parsed, err := ParsePercent(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Percent) MarshalYAML() (any, error) {
	return p.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Percent) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParsePercent(node.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
