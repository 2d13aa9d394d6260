// Package plugin provides the hook system for dues.
// Plugins implement any subset of the hook interfaces below; the Registry
// discovers them at registration time and dispatches events to them.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Generation hooks
// ──────────────────────────────────────────────────

// OnChargeCreated is called for every charge a generation run inserts.
type OnChargeCreated interface {
	Plugin
	OnChargeCreated(ctx context.Context, c *charge.Charge) error
}

// OnPeriodGenerated is called after a period's generation run completes.
type OnPeriodGenerated interface {
	Plugin
	OnPeriodGenerated(ctx context.Context, p period.Period, created, existing int, elapsed time.Duration) error
}

// OnGenerationFailed is called when a generation run aborts.
type OnGenerationFailed interface {
	Plugin
	OnGenerationFailed(ctx context.Context, p period.Period, err error) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded is called after a payment has been persisted.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, c *charge.Charge, p *charge.Payment) error
}

// OnChargePaid is called when a payment settles a charge.
type OnChargePaid interface {
	Plugin
	OnChargePaid(ctx context.Context, c *charge.Charge) error
}

// ──────────────────────────────────────────────────
// Closing hooks
// ──────────────────────────────────────────────────

// OnSurchargeApplied is called when closing marks a charge delinquent and
// adds a surcharge to it.
type OnSurchargeApplied interface {
	Plugin
	OnSurchargeApplied(ctx context.Context, c *charge.Charge, adj charge.Adjustment) error
}

// OnPeriodClosed is called when a closure record is written.
type OnPeriodClosed interface {
	Plugin
	OnPeriodClosed(ctx context.Context, r *closure.Record) error
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnWriteConflict is called when a conditional update keeps losing races and
// the operation gives up.
type OnWriteConflict interface {
	Plugin
	OnWriteConflict(ctx context.Context, chargeID, op string) error
}
