// Package mongo provides a store.Store backed by MongoDB.
//
// The one-charge-per-(period, member) rule is a unique index; conditional
// updates filter on the document version.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	duesstore "github.com/xraph/dues/store"
)

// Collection name constants.
const (
	colCharges  = "dues_charges"
	colClosures = "dues_closures"
	colConfig   = "dues_config"

	feeConfigID = "fee"
)

// compile-time interface check
var _ duesstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	owned  bool
}

// Open connects to uri and uses database name. The returned store owns the
// client and disconnects it on Close.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("dues/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("dues/mongo: ping: %w", err)
	}
	s := New(client.Database(database))
	s.owned = true
	return s, nil
}

// New creates a store on an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{client: db.Client(), db: db}
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates indexes for all dues collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: dues/mongo: migrate %s indexes: %w", dues.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client when the store owns it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Charge Store ====================

func (s *Store) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	return s.findCharge(ctx, bson.M{"_id": chargeID.String()}, "get charge")
}

func (s *Store) GetChargeByKey(ctx context.Context, memberID string, p period.Period) (*charge.Charge, error) {
	return s.findCharge(ctx, bson.M{"period": p.String(), "member_id": memberID}, "get charge by key")
}

func (s *Store) findCharge(ctx context.Context, filter bson.M, op string) (*charge.Charge, error) {
	var m chargeModel
	if err := s.db.Collection(colCharges).FindOne(ctx, filter).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrChargeNotFound
		}
		return nil, fmt.Errorf("dues/mongo: %s: %w", op, err)
	}
	c, err := fromChargeModel(&m)
	if err != nil {
		return nil, fmt.Errorf("dues/mongo: decode charge: %w", err)
	}
	return c, nil
}

func (s *Store) CreateChargeIfAbsent(ctx context.Context, c *charge.Charge) (bool, error) {
	_, err := s.db.Collection(colCharges).InsertOne(ctx, toChargeModel(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("dues/mongo: create charge: %w", err)
	}
	return true, nil
}

func (s *Store) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	next := toChargeModel(c)
	next.Version = c.Version + 1

	res, err := s.db.Collection(colCharges).ReplaceOne(ctx,
		bson.M{"_id": next.ID, "version": c.Version},
		next,
	)
	if err != nil {
		return fmt.Errorf("dues/mongo: update charge: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.db.Collection(colCharges).CountDocuments(ctx, bson.M{"_id": next.ID})
		if err != nil {
			return fmt.Errorf("dues/mongo: update charge: %w", err)
		}
		if n == 0 {
			return dues.ErrChargeNotFound
		}
		return dues.ErrVersionConflict
	}
	c.Version = next.Version
	return nil
}

func (s *Store) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, error) {
	filter := bson.M{}
	if opts.MemberID != "" {
		filter["member_id"] = opts.MemberID
	}
	rng := bson.M{}
	if !opts.From.IsZero() {
		rng["$gte"] = opts.From.String()
	}
	if !opts.To.IsZero() {
		rng["$lte"] = opts.To.String()
	}
	if len(rng) > 0 {
		filter["period"] = rng
	}
	if len(opts.Status) > 0 {
		statuses := make([]string, len(opts.Status))
		for i, st := range opts.Status {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "period", Value: 1}, {Key: "member_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := s.db.Collection(colCharges).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("dues/mongo: list charges: %w", err)
	}
	var models []chargeModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("dues/mongo: list charges: %w", err)
	}

	out := make([]*charge.Charge, 0, len(models))
	for i := range models {
		c, err := fromChargeModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("dues/mongo: decode charge: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ==================== Closure Store ====================

func (s *Store) CreateClosureIfAbsent(ctx context.Context, r *closure.Record) (*closure.Record, bool, error) {
	_, err := s.db.Collection(colClosures).InsertOne(ctx, toClosureModel(r))
	created := err == nil
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("dues/mongo: create closure: %w", err)
	}
	stored, err := s.GetClosure(ctx, r.Period)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *Store) GetClosure(ctx context.Context, p period.Period) (*closure.Record, error) {
	var m closureModel
	if err := s.db.Collection(colClosures).FindOne(ctx, bson.M{"_id": p.String()}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrClosureNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get closure: %w", err)
	}
	return fromClosureModel(&m)
}

// ==================== Fee Config Store ====================

func (s *Store) GetFeeConfig(ctx context.Context) (*fee.Overrides, error) {
	var m feeConfigModel
	if err := s.db.Collection(colConfig).FindOne(ctx, bson.M{"_id": feeConfigID}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return nil, dues.ErrConfigNotFound
		}
		return nil, fmt.Errorf("dues/mongo: get fee config: %w", err)
	}
	if m.Overrides == nil {
		return &fee.Overrides{}, nil
	}
	return m.Overrides, nil
}

func (s *Store) PutFeeConfig(ctx context.Context, o *fee.Overrides) error {
	_, err := s.db.Collection(colConfig).ReplaceOne(ctx,
		bson.M{"_id": feeConfigID},
		feeConfigModel{ID: feeConfigID, Overrides: o, UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("dues/mongo: put fee config: %w", err)
	}
	return nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all dues collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCharges: {
			{
				Keys:    bson.D{{Key: "period", Value: 1}, {Key: "member_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "period", Value: 1}}},
			{Keys: bson.D{{Key: "period", Value: 1}, {Key: "status", Value: 1}}},
		},
	}
}
