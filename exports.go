package dues

import (
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// Re-export common types so callers can stay in the root package.

// Money is re-exported from types package.
type Money = types.Money

// Percent is re-exported from types package.
type Percent = types.Percent

// Period is re-exported from period package.
type Period = period.Period

// Re-export constructors
var (
	ParseMoney   = types.ParseMoney
	ParsePercent = types.ParsePercent
	ParsePeriod  = period.Parse
	PeriodOf     = period.Of
)
