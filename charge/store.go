// Package charge models dues charges: one billing obligation per member per
// period, with its discounts, surcharges, payments and status.
package charge

import (
	"context"
	"slices"
	"strings"

	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
)

// Store is the charge half of the storage port.
type Store interface {
	GetCharge(ctx context.Context, chargeID id.ChargeID) (*Charge, error)
	GetChargeByKey(ctx context.Context, memberID string, p period.Period) (*Charge, error)

	// CreateChargeIfAbsent inserts c unless a charge already exists for
	// (c.MemberID, c.Period). It reports whether c was inserted. The check
	// and the insert are one atomic operation.
	CreateChargeIfAbsent(ctx context.Context, c *Charge) (bool, error)

	// UpdateCharge replaces the stored charge when its version still equals
	// c.Version, then increments c.Version. A stale version fails with an
	// error matching dues.ErrVersionConflict.
	UpdateCharge(ctx context.Context, c *Charge) error

	// ListCharges returns a snapshot of the charges matching opts, ordered by
	// period then member.
	ListCharges(ctx context.Context, opts ListOpts) ([]*Charge, error)
}

// ListOpts filters ListCharges. Zero values do not filter.
type ListOpts struct {
	MemberID string
	From     period.Period
	To       period.Period
	Status   []Status
	Limit    int
}

// Matches reports whether c passes the filter (Limit is not considered).
func (o ListOpts) Matches(c *Charge) bool {
	if o.MemberID != "" && c.MemberID != o.MemberID {
		return false
	}
	if !o.From.IsZero() && c.Period.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && c.Period.After(o.To) {
		return false
	}
	if len(o.Status) > 0 {
		for _, s := range o.Status {
			if c.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// Single returns ListOpts covering exactly period p.
func Single(p period.Period) ListOpts {
	return ListOpts{From: p, To: p}
}

// Sort orders cs by period, then member.
func Sort(cs []*Charge) {
	slices.SortFunc(cs, func(a, b *Charge) int {
		if c := a.Period.Compare(b.Period); c != 0 {
			return c
		}
		return strings.Compare(a.MemberID, b.MemberID)
	})
}
