package fee

import (
	"slices"
	"time"

	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// Applies reports whether a payment made at now earns the discount on a
// charge for period p.
func (e EarlyPayment) Applies(p period.Period, now time.Time) bool {
	if !e.Enabled || e.Percent <= 0 {
		return false
	}
	return period.Of(now) == p && slices.Contains(e.ValidDays, now.Day())
}

// Discount returns the discount amount on base.
func (e EarlyPayment) Discount(base types.Money) types.Money {
	return e.Percent.Of(base)
}

// PastGrace reports whether an unpaid charge for period p is delinquent at now.
//
// A period strictly before the current one is always past grace. The current
// period is past grace from GraceDayOfMonth onwards (inclusive). Future
// periods never are.
func (d Delinquency) PastGrace(p period.Period, now time.Time) bool {
	switch cur := period.Of(now); {
	case p.Before(cur):
		return true
	case p == cur:
		return now.Day() >= d.GraceDayOfMonth
	default:
		return false
	}
}

// Surcharge returns the surcharge amount on base, or zero when disabled.
func (d Delinquency) Surcharge(base types.Money) types.Money {
	if !d.Enabled {
		return 0
	}
	return d.PercentPerMonth.Of(base)
}
