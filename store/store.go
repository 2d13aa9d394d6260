// Package store defines the unified storage port for dues.
//
// Backends live in sub-packages: memory, sqlite, postgres, mongo and redis.
// All of them enforce the same guarantees with per-key conditional writes
// and never need in-process locking in the caller.
package store

import (
	"context"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
)

// Store is the unified storage interface for all dues records.
type Store interface {
	// Charge methods
	GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error)
	GetChargeByKey(ctx context.Context, memberID string, p period.Period) (*charge.Charge, error)
	CreateChargeIfAbsent(ctx context.Context, c *charge.Charge) (bool, error)
	UpdateCharge(ctx context.Context, c *charge.Charge) error
	ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error)

	// Closure methods
	CreateClosureIfAbsent(ctx context.Context, r *closure.Record) (*closure.Record, bool, error)
	GetClosure(ctx context.Context, p period.Period) (*closure.Record, error)

	// Configuration methods
	GetFeeConfig(ctx context.Context) (*fee.Overrides, error)
	PutFeeConfig(ctx context.Context, o *fee.Overrides) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ charge.Store  = (Store)(nil)
	_ closure.Store = (Store)(nil)
	_ fee.Store     = (Store)(nil)
)
