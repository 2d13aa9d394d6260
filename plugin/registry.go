package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration and cached per type.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit             []OnInit
	onShutdown         []OnShutdown
	onChargeCreated    []OnChargeCreated
	onPeriodGenerated  []OnPeriodGenerated
	onGenerationFailed []OnGenerationFailed
	onPaymentRecorded  []OnPaymentRecorded
	onChargePaid       []OnChargePaid
	onSurchargeApplied []OnSurchargeApplied
	onPeriodClosed     []OnPeriodClosed
	onWriteConflict    []OnWriteConflict
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnChargeCreated); ok {
		r.onChargeCreated = append(r.onChargeCreated, v)
	}
	if v, ok := p.(OnPeriodGenerated); ok {
		r.onPeriodGenerated = append(r.onPeriodGenerated, v)
	}
	if v, ok := p.(OnGenerationFailed); ok {
		r.onGenerationFailed = append(r.onGenerationFailed, v)
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
	}
	if v, ok := p.(OnChargePaid); ok {
		r.onChargePaid = append(r.onChargePaid, v)
	}
	if v, ok := p.(OnSurchargeApplied); ok {
		r.onSurchargeApplied = append(r.onSurchargeApplied, v)
	}
	if v, ok := p.(OnPeriodClosed); ok {
		r.onPeriodClosed = append(r.onPeriodClosed, v)
	}
	if v, ok := p.(OnWriteConflict); ok {
		r.onWriteConflict = append(r.onWriteConflict, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnChargeCreated", reflect.TypeFor[OnChargeCreated]()},
	{"OnPeriodGenerated", reflect.TypeFor[OnPeriodGenerated]()},
	{"OnGenerationFailed", reflect.TypeFor[OnGenerationFailed]()},
	{"OnPaymentRecorded", reflect.TypeFor[OnPaymentRecorded]()},
	{"OnChargePaid", reflect.TypeFor[OnChargePaid]()},
	{"OnSurchargeApplied", reflect.TypeFor[OnSurchargeApplied]()},
	{"OnPeriodClosed", reflect.TypeFor[OnPeriodClosed]()},
	{"OnWriteConflict", reflect.TypeFor[OnWriteConflict]()},
}

func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch runs call for every hook in hooks, logging failures under event.
func dispatch[H Plugin](ctx context.Context, r *Registry, event string, hooks []H, call func(H) error) {
	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error { return call(h) }); err != nil {
			r.logger.Warn("plugin "+event+" failed",
				"plugin", h.Name(),
				"error", err,
			)
		}
	}
}

func snapshot[H any](r *Registry, hooks *[]H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *hooks
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	dispatch(ctx, r, "OnInit", snapshot(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", snapshot(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitChargeCreated emits a charge created event.
func (r *Registry) EmitChargeCreated(ctx context.Context, c *charge.Charge) {
	dispatch(ctx, r, "OnChargeCreated", snapshot(r, &r.onChargeCreated), func(p OnChargeCreated) error {
		return p.OnChargeCreated(ctx, c)
	})
}

// EmitPeriodGenerated emits a period generated event.
func (r *Registry) EmitPeriodGenerated(ctx context.Context, per period.Period, created, existing int, elapsed time.Duration) {
	dispatch(ctx, r, "OnPeriodGenerated", snapshot(r, &r.onPeriodGenerated), func(p OnPeriodGenerated) error {
		return p.OnPeriodGenerated(ctx, per, created, existing, elapsed)
	})
}

// EmitGenerationFailed emits a generation failed event.
func (r *Registry) EmitGenerationFailed(ctx context.Context, per period.Period, cause error) {
	dispatch(ctx, r, "OnGenerationFailed", snapshot(r, &r.onGenerationFailed), func(p OnGenerationFailed) error {
		return p.OnGenerationFailed(ctx, per, cause)
	})
}

// EmitPaymentRecorded emits a payment recorded event.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, c *charge.Charge, pay *charge.Payment) {
	dispatch(ctx, r, "OnPaymentRecorded", snapshot(r, &r.onPaymentRecorded), func(p OnPaymentRecorded) error {
		return p.OnPaymentRecorded(ctx, c, pay)
	})
}

// EmitChargePaid emits a charge paid event.
func (r *Registry) EmitChargePaid(ctx context.Context, c *charge.Charge) {
	dispatch(ctx, r, "OnChargePaid", snapshot(r, &r.onChargePaid), func(p OnChargePaid) error {
		return p.OnChargePaid(ctx, c)
	})
}

// EmitSurchargeApplied emits a surcharge applied event.
func (r *Registry) EmitSurchargeApplied(ctx context.Context, c *charge.Charge, adj charge.Adjustment) {
	dispatch(ctx, r, "OnSurchargeApplied", snapshot(r, &r.onSurchargeApplied), func(p OnSurchargeApplied) error {
		return p.OnSurchargeApplied(ctx, c, adj)
	})
}

// EmitPeriodClosed emits a period closed event.
func (r *Registry) EmitPeriodClosed(ctx context.Context, rec *closure.Record) {
	dispatch(ctx, r, "OnPeriodClosed", snapshot(r, &r.onPeriodClosed), func(p OnPeriodClosed) error {
		return p.OnPeriodClosed(ctx, rec)
	})
}

// EmitWriteConflict emits a write conflict event.
func (r *Registry) EmitWriteConflict(ctx context.Context, chargeID, op string) {
	dispatch(ctx, r, "OnWriteConflict", snapshot(r, &r.onWriteConflict), func(p OnWriteConflict) error {
		return p.OnWriteConflict(ctx, chargeID, op)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins never block billing operations.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
