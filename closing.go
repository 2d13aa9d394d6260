package dues

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
)

// ClosePeriod marks every still-pending charge of p delinquent, adding the
// delinquency surcharge when enabled, and records the closure.
//
// Closing is idempotent: once a closure record exists it is returned as is.
// A period that has not reached its grace day fails with ErrPeriodNotDue and
// nothing is written.
func (d *Dues) ClosePeriod(ctx context.Context, p period.Period, actor string) (*closure.Record, error) {
	if actor == "" {
		return nil, ValidationError{Field: "actor", Message: "required"}
	}
	if p.IsZero() {
		return nil, ErrInvalidPeriod
	}

	existing, err := d.store.GetClosure(ctx, p)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrClosureNotFound):
		return nil, fmt.Errorf("dues: read closure %s: %w", p, err)
	}

	cfg, err := d.Config(ctx)
	if err != nil {
		return nil, err
	}
	now := d.Now()
	if !cfg.Delinquency.PastGrace(p, now) {
		return nil, fmt.Errorf("%w: %s before day %d", ErrPeriodNotDue, p, cfg.Delinquency.GraceDayOfMonth)
	}

	pending, err := d.store.ListCharges(ctx, charge.ListOpts{
		From:   p,
		To:     p,
		Status: []charge.Status{charge.StatusPending},
	})
	if err != nil {
		return nil, fmt.Errorf("dues: list pending charges %s: %w", p, err)
	}

	var surcharged atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, snap := range pending {
		g.Go(func() error {
			var (
				updated *charge.Charge
				adj     charge.Adjustment
				added   bool
			)
			err := d.withRetry(gctx, isVersionConflict, func() error {
				c, err := d.store.GetCharge(gctx, snap.ID)
				if err != nil {
					return err
				}
				// Paid or already delinquent since the snapshot.
				if c.Status != charge.StatusPending {
					updated = nil
					return nil
				}
				if err := c.Transition(charge.StatusDelinquent); err != nil {
					return err
				}
				added = false
				if amt := cfg.Delinquency.Surcharge(c.BaseAmount); amt > 0 {
					added = c.AddSurcharge(charge.KindDelinquency, amt, now)
					adj = c.Surcharges[len(c.Surcharges)-1]
				}
				c.Touch(now.UTC())
				if err := d.store.UpdateCharge(gctx, c); err != nil {
					return err
				}
				updated = c
				return nil
			})
			if err != nil {
				if errors.Is(err, ErrVersionConflict) {
					d.plugins.EmitWriteConflict(gctx, snap.ID.String(), "close_period")
					return fmt.Errorf("%w: close %s charge %s: %w", ErrConflict, p, snap.ID, err)
				}
				return fmt.Errorf("dues: close %s charge %s: %w", p, snap.ID, err)
			}
			if updated == nil {
				return nil
			}
			surcharged.Add(1)
			if added {
				d.plugins.EmitSurchargeApplied(gctx, updated, adj)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec, created, err := d.store.CreateClosureIfAbsent(ctx, &closure.Record{
		Period:     p,
		ClosedBy:   actor,
		ClosedAt:   now.UTC(),
		Surcharged: int(surcharged.Load()),
	})
	if err != nil {
		return nil, fmt.Errorf("dues: write closure %s: %w", p, err)
	}
	if created {
		d.logger.Info("period closed",
			"period", p.String(),
			"closed_by", actor,
			"delinquent", rec.Surcharged,
		)
		d.plugins.EmitPeriodClosed(ctx, rec)
	}

	return rec, nil
}
