// Package observability provides a metrics extension for dues that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnChargeCreated    = (*MetricsExtension)(nil)
	_ plugin.OnPeriodGenerated  = (*MetricsExtension)(nil)
	_ plugin.OnGenerationFailed = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded  = (*MetricsExtension)(nil)
	_ plugin.OnChargePaid       = (*MetricsExtension)(nil)
	_ plugin.OnSurchargeApplied = (*MetricsExtension)(nil)
	_ plugin.OnPeriodClosed     = (*MetricsExtension)(nil)
	_ plugin.OnWriteConflict    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a dues plugin to track billing activity.
type MetricsExtension struct {
	factory MetricFactory

	// Generation metrics
	ChargesCreated     Counter
	PeriodsGenerated   Counter
	GenerationFailures Counter
	GenerationLatency  Histogram
	GenerationExisting Counter

	// Payment metrics
	PaymentsRecorded Counter
	PaymentAmount    Histogram
	ChargesPaid      Counter

	// Closing metrics
	SurchargesApplied Counter
	SurchargeAmount   Histogram
	PeriodsClosed     Counter

	// Error metrics
	WriteConflicts Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ChargesCreated:     factory.Counter("dues.charge.created"),
		PeriodsGenerated:   factory.Counter("dues.period.generated"),
		GenerationFailures: factory.Counter("dues.generation.failures"),
		GenerationLatency:  factory.Histogram("dues.generation.latency_ms"),
		GenerationExisting: factory.Counter("dues.generation.existing"),

		PaymentsRecorded: factory.Counter("dues.payment.recorded"),
		PaymentAmount:    factory.Histogram("dues.payment.amount_minor"),
		ChargesPaid:      factory.Counter("dues.charge.paid"),

		SurchargesApplied: factory.Counter("dues.surcharge.applied"),
		SurchargeAmount:   factory.Histogram("dues.surcharge.amount_minor"),
		PeriodsClosed:     factory.Counter("dues.period.closed"),

		WriteConflicts: factory.Counter("dues.store.write_conflicts"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Generation hooks
// ──────────────────────────────────────────────────

// OnChargeCreated implements plugin.OnChargeCreated.
func (m *MetricsExtension) OnChargeCreated(_ context.Context, _ *charge.Charge) error {
	m.ChargesCreated.Inc()
	return nil
}

// OnPeriodGenerated implements plugin.OnPeriodGenerated.
func (m *MetricsExtension) OnPeriodGenerated(_ context.Context, _ period.Period, _, existing int, elapsed time.Duration) error {
	m.PeriodsGenerated.Inc()
	m.GenerationExisting.Add(float64(existing))
	m.GenerationLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnGenerationFailed implements plugin.OnGenerationFailed.
func (m *MetricsExtension) OnGenerationFailed(_ context.Context, _ period.Period, _ error) error {
	m.GenerationFailures.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, _ *charge.Charge, p *charge.Payment) error {
	m.PaymentsRecorded.Inc()
	m.PaymentAmount.Observe(float64(p.Amount.Minor()))
	return nil
}

// OnChargePaid implements plugin.OnChargePaid.
func (m *MetricsExtension) OnChargePaid(_ context.Context, _ *charge.Charge) error {
	m.ChargesPaid.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Closing hooks
// ──────────────────────────────────────────────────

// OnSurchargeApplied implements plugin.OnSurchargeApplied.
func (m *MetricsExtension) OnSurchargeApplied(_ context.Context, _ *charge.Charge, adj charge.Adjustment) error {
	m.SurchargesApplied.Inc()
	m.SurchargeAmount.Observe(float64(adj.Amount.Minor()))
	return nil
}

// OnPeriodClosed implements plugin.OnPeriodClosed.
func (m *MetricsExtension) OnPeriodClosed(_ context.Context, _ *closure.Record) error {
	m.PeriodsClosed.Inc()
	return nil
}

// OnWriteConflict implements plugin.OnWriteConflict.
func (m *MetricsExtension) OnWriteConflict(_ context.Context, _, _ string) error {
	m.WriteConflicts.Inc()
	return nil
}
