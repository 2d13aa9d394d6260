// Package redis provides a store.Store backed by Redis.
//
// Records are JSON values under a hierarchical key layout:
//
//	config/fee
//	ledger/charges/{period}/{memberId}/{chargeId}
//	ledger/closures/{period}
//	ledger/index/{period}/{memberId}   -> charge key
//	ledger/ids/{chargeId}              -> charge key
//
// Charge creation is a Lua script guarded by SETNX on the index key.
// Updates are WATCH/MULTI compare-and-swap on the charge version.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store"
)

var _ store.Store = (*Store)(nil)

const scanBatch = 200

var createCharge = redis.NewScript(`
if redis.call('SETNX', KEYS[1], KEYS[2]) == 0 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], KEYS[2])
return 1
`)

// Store implements store.Store using Redis.
type Store struct {
	client *redis.Client
	prefix string
	owned  bool
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key, e.g. "assoc-a/".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Open parses url, connects and pings. The store owns the client.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("dues/redis: parse url: %w", err)
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dues/redis: ping: %w", err)
	}
	s := New(client, opts...)
	s.owned = true
	return s, nil
}

// New creates a store on an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Client returns the underlying client.
func (s *Store) Client() *redis.Client { return s.client }

// ==================== Keys ====================

func (s *Store) feeKey() string { return s.prefix + "config/fee" }

func (s *Store) chargeKey(c *charge.Charge) string {
	return fmt.Sprintf("%sledger/charges/%s/%s/%s", s.prefix, c.Period, c.MemberID, c.ID)
}

func (s *Store) indexKey(memberID string, p period.Period) string {
	return fmt.Sprintf("%sledger/index/%s/%s", s.prefix, p, memberID)
}

func (s *Store) idKey(chargeID string) string {
	return s.prefix + "ledger/ids/" + chargeID
}

func (s *Store) closureKey(p period.Period) string {
	return s.prefix + "ledger/closures/" + p.String()
}

// ==================== Lifecycle ====================

// Migrate is a no-op; Redis needs no schema.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client when the store owns it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

// ==================== Charge Store ====================

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	return s.follow(ctx, s.idKey(chargeID.String()), "get charge")
}

func (s *Store) GetChargeByKey(ctx context.Context, memberID string, p period.Period) (*charge.Charge, error) {
	return s.follow(ctx, s.indexKey(memberID, p), "get charge by key")
}

// follow reads a pointer key and then the charge it names.
func (s *Store) follow(ctx context.Context, pointer, op string) (*charge.Charge, error) {
	key, err := s.client.Get(ctx, pointer).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dues.ErrChargeNotFound
		}
		return nil, fmt.Errorf("dues/redis: %s: %w", op, err)
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dues.ErrChargeNotFound
		}
		return nil, fmt.Errorf("dues/redis: %s: %w", op, err)
	}
	return decodeCharge(raw)
}

func (s *Store) CreateChargeIfAbsent(ctx context.Context, c *charge.Charge) (bool, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("dues/redis: encode charge: %w", err)
	}
	n, err := createCharge.Run(ctx, s.client,
		[]string{s.indexKey(c.MemberID, c.Period), s.chargeKey(c), s.idKey(c.ID.String())},
		data,
	).Int()
	if err != nil {
		return false, fmt.Errorf("dues/redis: create charge: %w", err)
	}
	return n == 1, nil
}

func (s *Store) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	key := s.chargeKey(c)
	next := c.Clone()
	next.Version++
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("dues/redis: encode charge: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return dues.ErrChargeNotFound
			}
			return err
		}
		cur, err := decodeCharge(raw)
		if err != nil {
			return err
		}
		if cur.Version != c.Version {
			return dues.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		c.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return dues.ErrVersionConflict
	case errors.Is(err, dues.ErrChargeNotFound), errors.Is(err, dues.ErrVersionConflict):
		return err
	default:
		return fmt.Errorf("dues/redis: update charge: %w", err)
	}
}

// ListCharges scans the charge keyspace. A single-period query narrows the
// scan to that period's keys.
func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	match := s.prefix + "ledger/charges/*"
	if !opts.From.IsZero() && opts.From == opts.To {
		match = fmt.Sprintf("%sledger/charges/%s/*", s.prefix, opts.From)
	}

	var out []*charge.Charge
	iter := s.client.Scan(ctx, 0, match, scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		vals, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return err
		}
		for _, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			c, err := decodeCharge([]byte(str))
			if err != nil {
				return err
			}
			if opts.Matches(c) {
				out = append(out, c)
			}
		}
		batch = batch[:0]
		return nil
	}
	// SCAN may return a key more than once.
	seen := make(keySet)
	for iter.Next(ctx) {
		if !seen.add(iter.Val()) {
			continue
		}
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return nil, fmt.Errorf("dues/redis: list charges: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("dues/redis: list charges: %w", err)
	}
	if err := flush(); err != nil {
		return nil, fmt.Errorf("dues/redis: list charges: %w", err)
	}

	charge.Sort(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

type keySet map[string]struct{}

// add records key and reports whether it was new.
func (k keySet) add(key string) bool {
	if _, ok := k[key]; ok {
		return false
	}
	k[key] = struct{}{}
	return true
}

// ==================== Closure Store ====================

func (s *Store) CreateClosureIfAbsent(ctx context.Context, r *closure.Record) (*closure.Record, bool, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, false, fmt.Errorf("dues/redis: encode closure: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.closureKey(r.Period), data, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("dues/redis: create closure: %w", err)
	}
	stored, err := s.GetClosure(ctx, r.Period)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *Store) GetClosure(ctx context.Context, p period.Period) (*closure.Record, error) {
	raw, err := s.client.Get(ctx, s.closureKey(p)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dues.ErrClosureNotFound
		}
		return nil, fmt.Errorf("dues/redis: get closure: %w", err)
	}
	var r closure.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("dues/redis: decode closure: %w", err)
	}
	return &r, nil
}

// ==================== Fee Config Store ====================

func (s *Store) GetFeeConfig(ctx context.Context) (*fee.Overrides, error) {
	raw, err := s.client.Get(ctx, s.feeKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dues.ErrConfigNotFound
		}
		return nil, fmt.Errorf("dues/redis: get fee config: %w", err)
	}
	var o fee.Overrides
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("dues/redis: decode fee config: %w", err)
	}
	return &o, nil
}

func (s *Store) PutFeeConfig(ctx context.Context, o *fee.Overrides) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("dues/redis: encode fee config: %w", err)
	}
	if err := s.client.Set(ctx, s.feeKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("dues/redis: put fee config: %w", err)
	}
	return nil
}

func decodeCharge(raw []byte) (*charge.Charge, error) {
	var c charge.Charge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("dues/redis: decode charge: %w", err)
	}
	return &c, nil
}
