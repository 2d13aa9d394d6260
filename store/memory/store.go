// Package memory provides an in-memory Store for tests and single-process use.
//
// Charges live in an arena keyed by charge ID, with a second map from
// (period, member) to charge ID that makes creation conditional. Records are
// copied on the way in and out, so callers never share state with the store.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store"
)

var _ store.Store = (*Store)(nil)

type key struct {
	period period.Period
	member string
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.RWMutex

	charges  map[string]*charge.Charge
	byKey    map[key]string
	closures map[period.Period]*closure.Record
	feeCfg   *fee.Overrides
	closed   bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		charges:  make(map[string]*charge.Charge),
		byKey:    make(map[key]string),
		closures: make(map[period.Period]*closure.Record),
	}
}

// Charge Store implementation

func (s *Store) GetCharge(_ context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.charges[chargeID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, dues.ErrChargeNotFound
}

func (s *Store) GetChargeByKey(_ context.Context, memberID string, p period.Period) (*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cid, ok := s.byKey[key{p, memberID}]; ok {
		return s.charges[cid].Clone(), nil
	}
	return nil, dues.ErrChargeNotFound
}

func (s *Store) CreateChargeIfAbsent(_ context.Context, c *charge.Charge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, dues.ErrStoreClosed
	}
	k := key{c.Period, c.MemberID}
	if _, exists := s.byKey[k]; exists {
		return false, nil
	}
	if _, exists := s.charges[c.ID.String()]; exists {
		return false, dues.ErrAlreadyExists
	}
	s.byKey[k] = c.ID.String()
	s.charges[c.ID.String()] = c.Clone()
	return true, nil
}

func (s *Store) UpdateCharge(_ context.Context, c *charge.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dues.ErrStoreClosed
	}
	cur, ok := s.charges[c.ID.String()]
	if !ok {
		return dues.ErrChargeNotFound
	}
	if cur.Version != c.Version {
		return dues.ErrVersionConflict
	}
	next := c.Clone()
	next.Version++
	s.charges[c.ID.String()] = next
	c.Version = next.Version
	return nil
}

func (s *Store) ListCharges(_ context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*charge.Charge
	for _, c := range s.charges {
		if opts.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	charge.Sort(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Closure Store implementation

func (s *Store) CreateClosureIfAbsent(_ context.Context, r *closure.Record) (*closure.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.closures[r.Period]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *r
	s.closures[r.Period] = &cp
	out := cp
	return &out, true, nil
}

func (s *Store) GetClosure(_ context.Context, p period.Period) (*closure.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.closures[p]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, dues.ErrClosureNotFound
}

// Fee config Store implementation

func (s *Store) GetFeeConfig(_ context.Context) (*fee.Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.feeCfg == nil {
		return nil, dues.ErrConfigNotFound
	}
	return s.feeCfg.Clone(), nil
}

func (s *Store) PutFeeConfig(_ context.Context, o *fee.Overrides) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feeCfg = o.Clone()
	return nil
}

// Lifecycle

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return dues.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
