package dues

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

// DebtItem is one open charge in a member summary.
type DebtItem struct {
	ChargeID  id.ChargeID   `json:"charge_id"`
	Period    period.Period `json:"period"`
	Total     types.Money   `json:"total"`
	Remaining types.Money   `json:"remaining"`
	Status    charge.Status `json:"status"`
	PastGrace bool          `json:"past_grace"`
}

// MemberSummary is the outstanding debt of one member.
type MemberSummary struct {
	MemberID   string        `json:"member_id"`
	From       period.Period `json:"from"`
	To         period.Period `json:"to"`
	Total      types.Money   `json:"total"`
	Delinquent bool          `json:"delinquent"`
	Items      []DebtItem    `json:"items"`
}

// Overview is the association-wide collection picture.
type Overview struct {
	From              period.Period `json:"from"`
	To                period.Period `json:"to"`
	Members           int           `json:"members"`
	Collected         types.Money   `json:"collected"`
	Pending           types.Money   `json:"pending"`
	DelinquentMembers int           `json:"delinquent_members"`
	Delinquent        []string      `json:"delinquent"`
	CollectionRate    types.Percent `json:"collection_rate"`
}

// MemberSummary sums the member's open balances from from through the
// current period. The member is delinquent when any open balance is past
// its grace day.
func (d *Dues) MemberSummary(ctx context.Context, memberID string, from period.Period) (*MemberSummary, error) {
	if memberID == "" {
		return nil, ValidationError{Field: "member_id", Message: "required"}
	}
	cfg, err := d.Config(ctx)
	if err != nil {
		return nil, err
	}
	to := d.CurrentPeriod()
	charges, err := d.store.ListCharges(ctx, charge.ListOpts{
		MemberID: memberID,
		From:     from,
		To:       to,
		Status:   []charge.Status{charge.StatusPending, charge.StatusDelinquent},
	})
	if err != nil {
		return nil, fmt.Errorf("dues: list charges for %s: %w", memberID, err)
	}

	now := d.Now()
	s := &MemberSummary{MemberID: memberID, From: from, To: to, Items: []DebtItem{}}
	for _, c := range charges {
		if !c.RemainingBalance.IsPositive() {
			continue
		}
		late := cfg.Delinquency.PastGrace(c.Period, now)
		s.Items = append(s.Items, DebtItem{
			ChargeID:  c.ID,
			Period:    c.Period,
			Total:     c.TotalAmount,
			Remaining: c.RemainingBalance,
			Status:    c.Status,
			PastGrace: late,
		})
		s.Total += c.RemainingBalance
		s.Delinquent = s.Delinquent || late
	}
	slices.SortStableFunc(s.Items, func(a, b DebtItem) int { return a.Period.Compare(b.Period) })

	return s, nil
}

// PortfolioOverview totals collected and pending amounts over the active
// members' charges from from through the current period, from a single
// charge snapshot.
func (d *Dues) PortfolioOverview(ctx context.Context, from period.Period) (*Overview, error) {
	cfg, err := d.Config(ctx)
	if err != nil {
		return nil, err
	}
	all, err := d.directory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: member directory: %w", ErrUnavailable, err)
	}
	members := member.Active(all)

	to := d.CurrentPeriod()
	charges, err := d.store.ListCharges(ctx, charge.ListOpts{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("dues: list charges: %w", err)
	}

	byMember := make(map[string][]*charge.Charge, len(members))
	for _, c := range charges {
		byMember[c.MemberID] = append(byMember[c.MemberID], c)
	}

	now := d.Now()
	ov := &Overview{From: from, To: to, Members: len(members), Delinquent: []string{}}
	for _, m := range members {
		if owesPastGrace(byMember[m.ID], cfg.Delinquency, now, &ov.Collected, &ov.Pending) {
			ov.Delinquent = append(ov.Delinquent, m.ID)
		}
	}
	ov.DelinquentMembers = len(ov.Delinquent)
	ov.CollectionRate = types.Ratio(ov.Collected, ov.Collected+ov.Pending)

	return ov, nil
}

// owesPastGrace accumulates the member's collected and pending totals and
// reports whether any open balance is past grace.
func owesPastGrace(charges []*charge.Charge, rule fee.Delinquency, now time.Time, collected, pending *types.Money) bool {
	late := false
	for _, c := range charges {
		*collected += c.TotalAmount - c.RemainingBalance
		if !c.Status.IsOpen() || !c.RemainingBalance.IsPositive() {
			continue
		}
		*pending += c.RemainingBalance
		late = late || rule.PastGrace(c.Period, now)
	}
	return late
}
