// Package audithook bridges dues lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnChargeCreated    = (*Extension)(nil)
	_ plugin.OnPeriodGenerated  = (*Extension)(nil)
	_ plugin.OnGenerationFailed = (*Extension)(nil)
	_ plugin.OnPaymentRecorded  = (*Extension)(nil)
	_ plugin.OnChargePaid       = (*Extension)(nil)
	_ plugin.OnSurchargeApplied = (*Extension)(nil)
	_ plugin.OnPeriodClosed     = (*Extension)(nil)
	_ plugin.OnWriteConflict    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges dues lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Generation hooks
// ──────────────────────────────────────────────────

// OnChargeCreated implements plugin.OnChargeCreated.
func (e *Extension) OnChargeCreated(ctx context.Context, c *charge.Charge) error {
	return e.record(ctx, ActionChargeCreated, SeverityInfo, OutcomeSuccess,
		ResourceCharge, c.ID.String(), CategoryBilling, nil,
		"member_id", c.MemberID,
		"period", c.Period.String(),
		"amount", c.TotalAmount.String(),
	)
}

// OnPeriodGenerated implements plugin.OnPeriodGenerated.
func (e *Extension) OnPeriodGenerated(ctx context.Context, p period.Period, created, existing int, elapsed time.Duration) error {
	return e.record(ctx, ActionPeriodGenerated, SeverityInfo, OutcomeSuccess,
		ResourcePeriod, p.String(), CategoryBilling, nil,
		"created", created,
		"existing", existing,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnGenerationFailed implements plugin.OnGenerationFailed.
func (e *Extension) OnGenerationFailed(ctx context.Context, p period.Period, err error) error {
	return e.record(ctx, ActionGenerationFailed, SeverityError, OutcomeFailure,
		ResourcePeriod, p.String(), CategoryBilling, err,
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, c *charge.Charge, p *charge.Payment) error {
	return e.record(ctx, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryPayment, nil,
		"charge_id", c.ID.String(),
		"member_id", c.MemberID,
		"amount", p.Amount.String(),
		"remaining", c.RemainingBalance.String(),
	)
}

// OnChargePaid implements plugin.OnChargePaid.
func (e *Extension) OnChargePaid(ctx context.Context, c *charge.Charge) error {
	return e.record(ctx, ActionChargePaid, SeverityInfo, OutcomeSuccess,
		ResourceCharge, c.ID.String(), CategoryPayment, nil,
		"member_id", c.MemberID,
		"period", c.Period.String(),
	)
}

// ──────────────────────────────────────────────────
// Closing hooks
// ──────────────────────────────────────────────────

// OnSurchargeApplied implements plugin.OnSurchargeApplied.
func (e *Extension) OnSurchargeApplied(ctx context.Context, c *charge.Charge, adj charge.Adjustment) error {
	return e.record(ctx, ActionSurchargeApplied, SeverityWarning, OutcomeSuccess,
		ResourceCharge, c.ID.String(), CategoryCollection, nil,
		"member_id", c.MemberID,
		"period", c.Period.String(),
		"kind", adj.Kind,
		"amount", adj.Amount.String(),
	)
}

// OnPeriodClosed implements plugin.OnPeriodClosed.
func (e *Extension) OnPeriodClosed(ctx context.Context, r *closure.Record) error {
	return e.record(ctx, ActionPeriodClosed, SeverityInfo, OutcomeSuccess,
		ResourcePeriod, r.Period.String(), CategoryCollection, nil,
		"closed_by", r.ClosedBy,
		"surcharged", r.Surcharged,
	)
}

// OnWriteConflict implements plugin.OnWriteConflict.
func (e *Extension) OnWriteConflict(ctx context.Context, chargeID, op string) error {
	return e.record(ctx, ActionWriteConflict, SeverityWarning, OutcomeFailure,
		ResourceCharge, chargeID, CategorySystem, nil,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
