// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/id"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store"
	"github.com/xraph/dues/types"
)

// Suite exercises a store.Store. NewStore must return an empty, migrated
// store for every test.
type Suite struct {
	suite.Suite

	NewStore func() store.Store

	ctx   context.Context
	store store.Store
}

var (
	jan = period.MustParse("2025-01")
	feb = period.MustParse("2025-02")
	t0  = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
)

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *Suite) create(memberID string, p period.Period) *charge.Charge {
	c := charge.New(memberID, p, 5000, t0)
	ok, err := s.store.CreateChargeIfAbsent(s.ctx, c)
	s.Require().NoError(err)
	s.Require().True(ok)
	return c
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *Suite) TestMigrateTwice() {
	s.NoError(s.store.Migrate(s.ctx))
}

func (s *Suite) TestCreateAndGet() {
	c := s.create("unit-1", jan)

	got, err := s.store.GetCharge(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID.String(), got.ID.String())
	s.Equal("unit-1", got.MemberID)
	s.Equal(jan, got.Period)
	s.EqualValues(5000, got.BaseAmount)
	s.EqualValues(5000, got.TotalAmount)
	s.EqualValues(5000, got.RemainingBalance)
	s.Equal(charge.StatusPending, got.Status)
	s.True(got.CreatedAt.Equal(t0))

	byKey, err := s.store.GetChargeByKey(s.ctx, "unit-1", jan)
	s.Require().NoError(err)
	s.Equal(c.ID.String(), byKey.ID.String())
}

func (s *Suite) TestGetMissing() {
	_, err := s.store.GetCharge(s.ctx, id.NewChargeID())
	s.ErrorIs(err, dues.ErrChargeNotFound)
	s.True(dues.IsNotFound(err))

	_, err = s.store.GetChargeByKey(s.ctx, "nobody", jan)
	s.ErrorIs(err, dues.ErrChargeNotFound)
}

func (s *Suite) TestCreateIfAbsentKeepsFirst() {
	first := s.create("unit-1", jan)

	second := charge.New("unit-1", jan, 9999, t0)
	ok, err := s.store.CreateChargeIfAbsent(s.ctx, second)
	s.Require().NoError(err)
	s.False(ok)

	got, err := s.store.GetChargeByKey(s.ctx, "unit-1", jan)
	s.Require().NoError(err)
	s.Equal(first.ID.String(), got.ID.String())
	s.EqualValues(5000, got.BaseAmount)

	ok, err = s.store.CreateChargeIfAbsent(s.ctx, charge.New("unit-1", feb, 5000, t0))
	s.Require().NoError(err)
	s.True(ok)
}

func (s *Suite) TestCreateIfAbsentConcurrent() {
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.CreateChargeIfAbsent(s.ctx, charge.New("unit-1", jan, 5000, t0))
			s.NoError(err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, created.Load())
	all, err := s.store.ListCharges(s.ctx, charge.Single(jan))
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *Suite) TestUpdateRoundTrip() {
	c := s.create("unit-1", jan)
	at := t0.Add(48 * time.Hour)

	c.AddSurcharge(charge.KindDelinquency, 250, at)
	s.Require().NoError(c.ApplyPayment(charge.Payment{
		ID:       id.NewPaymentID(),
		Amount:   1000,
		PaidAt:   at,
		Metadata: map[string]string{"ref": "bank-42"},
	}))
	s.Require().NoError(c.Transition(charge.StatusDelinquent))
	c.Touch(at)
	s.Require().NoError(s.store.UpdateCharge(s.ctx, c))
	s.EqualValues(1, c.Version)

	got, err := s.store.GetCharge(s.ctx, c.ID)
	s.Require().NoError(err)
	s.EqualValues(1, got.Version)
	s.Equal(charge.StatusDelinquent, got.Status)
	s.EqualValues(5250, got.TotalAmount)
	s.EqualValues(1000, got.AmountPaid)
	s.EqualValues(4250, got.RemainingBalance)
	s.Require().Len(got.Surcharges, 1)
	s.Equal(charge.KindDelinquency, got.Surcharges[0].Kind)
	s.True(got.Surcharges[0].AppliedAt.Equal(at))
	s.Require().Len(got.Payments, 1)
	s.Equal(c.Payments[0].ID.String(), got.Payments[0].ID.String())
	s.Equal("bank-42", got.Payments[0].Metadata["ref"])
	s.True(got.UpdatedAt.Equal(at))
}

func (s *Suite) TestUpdateStaleVersion() {
	c := s.create("unit-1", jan)
	stale := c.Clone()

	s.Require().NoError(c.ApplyPayment(charge.Payment{ID: id.NewPaymentID(), Amount: 100, PaidAt: t0}))
	s.Require().NoError(s.store.UpdateCharge(s.ctx, c))

	s.Require().NoError(stale.ApplyPayment(charge.Payment{ID: id.NewPaymentID(), Amount: 200, PaidAt: t0}))
	err := s.store.UpdateCharge(s.ctx, stale)
	s.ErrorIs(err, dues.ErrVersionConflict)

	got, err := s.store.GetCharge(s.ctx, c.ID)
	s.Require().NoError(err)
	s.EqualValues(100, got.AmountPaid)
}

func (s *Suite) TestUpdateMissing() {
	err := s.store.UpdateCharge(s.ctx, charge.New("ghost", jan, 5000, t0))
	s.True(dues.IsNotFound(err) || dues.IsConflict(err))
}

func (s *Suite) TestListCharges() {
	s.create("b", jan)
	s.create("a", jan)
	paid := s.create("a", feb)
	s.create("c", period.MustParse("2025-03"))

	s.Require().NoError(paid.ApplyPayment(charge.Payment{ID: id.NewPaymentID(), Amount: 5000, PaidAt: t0}))
	s.Require().NoError(s.store.UpdateCharge(s.ctx, paid))

	all, err := s.store.ListCharges(s.ctx, charge.ListOpts{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal([]string{"a", "b", "a", "c"}, memberIDs(all))

	inRange, err := s.store.ListCharges(s.ctx, charge.ListOpts{From: jan, To: feb})
	s.Require().NoError(err)
	s.Len(inRange, 3)

	forA, err := s.store.ListCharges(s.ctx, charge.ListOpts{MemberID: "a"})
	s.Require().NoError(err)
	s.Len(forA, 2)

	pending, err := s.store.ListCharges(s.ctx, charge.ListOpts{Status: []charge.Status{charge.StatusPending}})
	s.Require().NoError(err)
	s.Len(pending, 3)

	limited, err := s.store.ListCharges(s.ctx, charge.ListOpts{Limit: 2})
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, memberIDs(limited))
}

func (s *Suite) TestClosures() {
	_, err := s.store.GetClosure(s.ctx, jan)
	s.ErrorIs(err, dues.ErrClosureNotFound)

	first := &closure.Record{Period: jan, ClosedBy: "treasurer", ClosedAt: t0, Surcharged: 3}
	got, created, err := s.store.CreateClosureIfAbsent(s.ctx, first)
	s.Require().NoError(err)
	s.True(created)
	s.Equal("treasurer", got.ClosedBy)

	got, created, err = s.store.CreateClosureIfAbsent(s.ctx, &closure.Record{Period: jan, ClosedBy: "late", ClosedAt: t0.Add(time.Hour)})
	s.Require().NoError(err)
	s.False(created)
	s.Equal("treasurer", got.ClosedBy)
	s.Equal(3, got.Surcharged)
	s.True(got.ClosedAt.Equal(t0))

	stored, err := s.store.GetClosure(s.ctx, jan)
	s.Require().NoError(err)
	s.Equal(jan, stored.Period)
	s.Equal("treasurer", stored.ClosedBy)
}

func (s *Suite) TestFeeConfig() {
	_, err := s.store.GetFeeConfig(s.ctx)
	s.ErrorIs(err, dues.ErrConfigNotFound)

	amount := types.Money(6000)
	grace := 10
	s.Require().NoError(s.store.PutFeeConfig(s.ctx, &fee.Overrides{
		FeeAmount:   &amount,
		Delinquency: &fee.DelinquencyOverrides{GraceDayOfMonth: &grace},
	}))

	got, err := s.store.GetFeeConfig(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(got.FeeAmount)
	s.EqualValues(6000, *got.FeeAmount)
	s.Nil(got.EarlyPayment)
	s.Require().NotNil(got.Delinquency)
	s.Equal(10, *got.Delinquency.GraceDayOfMonth)
	s.Nil(got.Delinquency.Enabled)

	s.Require().NoError(s.store.PutFeeConfig(s.ctx, fee.OverridesFrom(fee.Default())))
	got, err = s.store.GetFeeConfig(s.ctx)
	s.Require().NoError(err)
	s.Equal(fee.Default(), got.Resolve())
}

func memberIDs(cs []*charge.Charge) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.MemberID
	}
	return out
}
