package dues

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/plugin"
	"github.com/xraph/dues/store"
)

// Dues is the billing engine.
type Dues struct {
	store     store.Store
	directory member.Directory
	plugins   *plugin.Registry
	logger    *slog.Logger

	clock   period.Clock
	loc     *time.Location
	workers int
	retry   RetryPolicy
}

// RetryPolicy bounds how often a conditional write is retried.
type RetryPolicy struct {
	Attempts        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used unless WithRetry overrides it.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:        5,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     250 * time.Millisecond,
}

// DefaultWorkers bounds the per-period worker pool.
const DefaultWorkers = 8

// New creates a new Dues engine over s, reading members from dir.
func New(s store.Store, dir member.Directory, opts ...Option) *Dues {
	d := &Dues{
		store:     s,
		directory: dir,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		clock:     period.SystemClock{},
		loc:       time.Local,
		workers:   DefaultWorkers,
		retry:     DefaultRetryPolicy,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Option configures a Dues instance.
type Option func(*Dues)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dues) {
		d.logger = logger
		d.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(d *Dues) {
		if err := d.plugins.Register(p); err != nil {
			d.logger.Warn("plugin registration failed", "plugin", p.Name(), "error", err)
		}
	}
}

// WithClock sets the clock used to decide "today".
func WithClock(c period.Clock) Option {
	return func(d *Dues) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLocation sets the time zone in which calendar days are evaluated.
func WithLocation(loc *time.Location) Option {
	return func(d *Dues) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithWorkers bounds concurrent writes within one period.
func WithWorkers(n int) Option {
	return func(d *Dues) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRetry configures conditional-write retries.
func WithRetry(attempts uint, initial, maxInterval time.Duration) Option {
	return func(d *Dues) {
		if attempts > 0 {
			d.retry.Attempts = attempts
		}
		if initial > 0 {
			d.retry.InitialInterval = initial
		}
		if maxInterval > 0 {
			d.retry.MaxInterval = maxInterval
		}
	}
}

// Start migrates the store and initializes plugins.
func (d *Dues) Start(ctx context.Context) error {
	if err := d.store.Migrate(ctx); err != nil {
		return err
	}

	d.plugins.EmitInit(ctx, d)

	d.logger.Info("dues started",
		"workers", d.workers,
		"retry_attempts", d.retry.Attempts,
		"location", d.loc.String(),
		"plugins", d.plugins.Count(),
	)

	return nil
}

// Stop shuts plugins down and closes the store.
func (d *Dues) Stop() error {
	d.plugins.EmitShutdown(context.Background())
	return d.store.Close()
}

// Store returns the underlying store.
func (d *Dues) Store() store.Store { return d.store }

// Plugins returns the plugin registry.
func (d *Dues) Plugins() *plugin.Registry { return d.plugins }

// Logger returns the engine logger.
func (d *Dues) Logger() *slog.Logger { return d.logger }

// Location returns the configured time zone.
func (d *Dues) Location() *time.Location { return d.loc }

// Now returns the current time in the configured location.
func (d *Dues) Now() time.Time {
	return d.clock.Now().In(d.loc)
}

// CurrentPeriod returns the period containing Now.
func (d *Dues) CurrentPeriod() period.Period {
	return period.Of(d.Now())
}

// Ping checks the store.
func (d *Dues) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}

// ──────────────────────────────────────────────────
// Charge queries
// ──────────────────────────────────────────────────

// GetCharge retrieves a charge by ID.
func (d *Dues) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	return d.store.GetCharge(ctx, chargeID)
}

// ListCharges returns the charges matching opts.
func (d *Dues) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	return d.store.ListCharges(ctx, opts)
}
