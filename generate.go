package dues

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
)

// GenerationReport describes one GenerateForPeriod run.
type GenerationReport struct {
	RunID    id.RunID      `json:"run_id"`
	Period   period.Period `json:"period"`
	Members  int           `json:"members"`
	Created  int           `json:"created"`
	Existing int           `json:"existing"`
	Elapsed  time.Duration `json:"elapsed"`
}

// RangeReport describes a GenerateRange run.
type RangeReport struct {
	From    period.Period      `json:"from"`
	To      period.Period      `json:"to"`
	Periods []GenerationReport `json:"periods"`
	Total   int                `json:"total_created"`
}

// GenerateForPeriod creates one pending charge per active member for p.
// Charges that already exist are left untouched, so repeated runs converge on
// the same set. If the configuration or the directory cannot be read nothing
// is written and the error matches ErrUnavailable.
func (d *Dues) GenerateForPeriod(ctx context.Context, p period.Period) (*GenerationReport, error) {
	if p.IsZero() {
		return nil, ErrInvalidPeriod
	}
	start := time.Now()
	report := &GenerationReport{RunID: id.NewRunID(), Period: p}

	cfg, err := d.Config(ctx)
	if err != nil {
		d.plugins.EmitGenerationFailed(ctx, p, err)
		return nil, err
	}
	all, err := d.directory.List(ctx)
	if err != nil {
		err = fmt.Errorf("%w: member directory: %w", ErrUnavailable, err)
		d.plugins.EmitGenerationFailed(ctx, p, err)
		return nil, err
	}
	members := member.Active(all)
	report.Members = len(members)

	var created, existing atomic.Int64
	now := d.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, m := range members {
		g.Go(func() error {
			c := charge.New(m.ID, p, cfg.FeeAmount, now)
			var inserted bool
			err := d.withRetry(gctx, isTransient, func() error {
				var err error
				inserted, err = d.store.CreateChargeIfAbsent(gctx, c)
				return err
			})
			if err != nil {
				return fmt.Errorf("dues: create charge %s/%s: %w", p, m.ID, err)
			}
			if inserted {
				created.Add(1)
				d.plugins.EmitChargeCreated(gctx, c)
			} else {
				existing.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.plugins.EmitGenerationFailed(ctx, p, err)
		return nil, err
	}

	report.Created = int(created.Load())
	report.Existing = int(existing.Load())
	report.Elapsed = time.Since(start)

	d.logger.Info("period generated",
		"run_id", report.RunID.String(),
		"period", p.String(),
		"members", report.Members,
		"created", report.Created,
		"existing", report.Existing,
		"elapsed", report.Elapsed,
	)
	d.plugins.EmitPeriodGenerated(ctx, p, report.Created, report.Existing, report.Elapsed)

	return report, nil
}

// GenerateRange runs GenerateForPeriod for every period from from through the
// current one. It stops at the first failure or cancellation and returns the
// periods completed so far together with the error.
func (d *Dues) GenerateRange(ctx context.Context, from period.Period) (*RangeReport, error) {
	if from.IsZero() {
		return nil, ErrInvalidPeriod
	}
	to := d.CurrentPeriod()
	report := &RangeReport{From: from, To: to, Periods: []GenerationReport{}}

	for _, p := range period.Range(from, to) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := d.GenerateForPeriod(ctx, p)
		if err != nil {
			return report, err
		}
		report.Periods = append(report.Periods, *r)
		report.Total += r.Created
	}

	return report, nil
}
