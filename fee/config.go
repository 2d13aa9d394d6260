// Package fee models the dues configuration: the monthly fee, the
// early-payment discount and the delinquency surcharge.
//
// The stored record is partial (Overrides). Resolve turns it into a complete
// Config by filling every absent or unusable field with its default, so a
// missing or half-written record never breaks billing.
package fee

import (
	"slices"

	"github.com/xraph/dues/types"
)

// Config is a fully-populated configuration snapshot.
type Config struct {
	FeeAmount    types.Money  `json:"fee_amount" yaml:"fee_amount"`
	EarlyPayment EarlyPayment `json:"early_payment" yaml:"early_payment"`
	Delinquency  Delinquency  `json:"delinquency" yaml:"delinquency"`
}

// EarlyPayment is the discount for paying within the first days of a period.
type EarlyPayment struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Percent   types.Percent `json:"percent" yaml:"percent"`
	ValidDays []int         `json:"valid_days" yaml:"valid_days"`
}

// Delinquency is the surcharge applied to charges still unpaid past the grace day.
type Delinquency struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	PercentPerMonth types.Percent `json:"percent_per_month" yaml:"percent_per_month"`
	GraceDayOfMonth int           `json:"grace_day_of_month" yaml:"grace_day_of_month"`
}

// Default values.
const (
	DefaultFeeAmount       types.Money   = 5000
	DefaultEarlyPaymentPct types.Percent = 1000
	DefaultSurchargePct    types.Percent = 500
	DefaultGraceDayOfMonth               = 16
	maxDayOfMonth                        = 31
)

// DefaultValidDays returns the default early-payment window (days 1-3).
func DefaultValidDays() []int { return []int{1, 2, 3} }

// Default returns the documented defaults.
func Default() Config {
	return Config{
		FeeAmount: DefaultFeeAmount,
		EarlyPayment: EarlyPayment{
			Enabled:   true,
			Percent:   DefaultEarlyPaymentPct,
			ValidDays: DefaultValidDays(),
		},
		Delinquency: Delinquency{
			Enabled:         true,
			PercentPerMonth: DefaultSurchargePct,
			GraceDayOfMonth: DefaultGraceDayOfMonth,
		},
	}
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.EarlyPayment.ValidDays = slices.Clone(c.EarlyPayment.ValidDays)
	return c
}

// Overrides is the configuration record as stored. Nil fields are absent.
type Overrides struct {
	FeeAmount    *types.Money           `json:"fee_amount,omitempty" yaml:"fee_amount,omitempty" validate:"omitempty,gt=0"`
	EarlyPayment *EarlyPaymentOverrides `json:"early_payment,omitempty" yaml:"early_payment,omitempty"`
	Delinquency  *DelinquencyOverrides  `json:"delinquency,omitempty" yaml:"delinquency,omitempty"`
}

// EarlyPaymentOverrides holds the stored early-payment fields.
type EarlyPaymentOverrides struct {
	Enabled   *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Percent   *types.Percent `json:"percent,omitempty" yaml:"percent,omitempty" validate:"omitempty,gte=0,lte=10000"`
	ValidDays []int          `json:"valid_days,omitempty" yaml:"valid_days,omitempty" validate:"omitempty,dive,min=1,max=31"`
}

// DelinquencyOverrides holds the stored delinquency fields.
type DelinquencyOverrides struct {
	Enabled         *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	PercentPerMonth *types.Percent `json:"percent_per_month,omitempty" yaml:"percent_per_month,omitempty" validate:"omitempty,gte=0,lte=10000"`
	GraceDayOfMonth *int           `json:"grace_day_of_month,omitempty" yaml:"grace_day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
}

// Resolve fills every absent or out-of-range field with its default.
// A nil receiver resolves to Default().
func (o *Overrides) Resolve() Config {
	cfg := Default()
	if o == nil {
		return cfg
	}

	if o.FeeAmount != nil && o.FeeAmount.IsPositive() {
		cfg.FeeAmount = *o.FeeAmount
	}

	if ep := o.EarlyPayment; ep != nil {
		if ep.Enabled != nil {
			cfg.EarlyPayment.Enabled = *ep.Enabled
		}
		if ep.Percent != nil && validPercent(*ep.Percent) {
			cfg.EarlyPayment.Percent = *ep.Percent
		}
		if days := validDays(ep.ValidDays); len(days) > 0 {
			cfg.EarlyPayment.ValidDays = days
		}
	}

	if d := o.Delinquency; d != nil {
		if d.Enabled != nil {
			cfg.Delinquency.Enabled = *d.Enabled
		}
		if d.PercentPerMonth != nil && validPercent(*d.PercentPerMonth) {
			cfg.Delinquency.PercentPerMonth = *d.PercentPerMonth
		}
		if d.GraceDayOfMonth != nil && *d.GraceDayOfMonth >= 1 && *d.GraceDayOfMonth <= maxDayOfMonth {
			cfg.Delinquency.GraceDayOfMonth = *d.GraceDayOfMonth
		}
	}

	return cfg
}

// OverridesFrom converts a full Config into a stored record with every field set.
func OverridesFrom(c Config) *Overrides {
	fee := c.FeeAmount
	epEnabled, epPct := c.EarlyPayment.Enabled, c.EarlyPayment.Percent
	dEnabled, dPct, grace := c.Delinquency.Enabled, c.Delinquency.PercentPerMonth, c.Delinquency.GraceDayOfMonth
	return &Overrides{
		FeeAmount: &fee,
		EarlyPayment: &EarlyPaymentOverrides{
			Enabled:   &epEnabled,
			Percent:   &epPct,
			ValidDays: slices.Clone(c.EarlyPayment.ValidDays),
		},
		Delinquency: &DelinquencyOverrides{
			Enabled:         &dEnabled,
			PercentPerMonth: &dPct,
			GraceDayOfMonth: &grace,
		},
	}
}

func validPercent(p types.Percent) bool {
	return p >= 0 && p <= types.BasisPoints
}

func validDays(days []int) []int {
	var out []int
	for _, d := range days {
		if d >= 1 && d <= maxDayOfMonth && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy that keeps absent fields absent.
func (o *Overrides) Clone() *Overrides {
	if o == nil {
		return nil
	}
	out := &Overrides{FeeAmount: clonePtr(o.FeeAmount)}
	if ep := o.EarlyPayment; ep != nil {
		out.EarlyPayment = &EarlyPaymentOverrides{
			Enabled:   clonePtr(ep.Enabled),
			Percent:   clonePtr(ep.Percent),
			ValidDays: slices.Clone(ep.ValidDays),
		}
	}
	if d := o.Delinquency; d != nil {
		out.Delinquency = &DelinquencyOverrides{
			Enabled:         clonePtr(d.Enabled),
			PercentPerMonth: clonePtr(d.PercentPerMonth),
			GraceDayOfMonth: clonePtr(d.GraceDayOfMonth),
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
