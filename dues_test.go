package dues_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dues"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/fee"
	"github.com/xraph/dues/member"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/store/memory"
	"github.com/xraph/dues/types"
)

var jan = period.MustParse("2025-01")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func clockAt(year int, month time.Month, day int) *testClock {
	return &testClock{t: time.Date(year, month, day, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(year int, month time.Month, day int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

var abc = member.Static{
	{ID: "A", Active: true},
	{ID: "B", Active: true},
	{ID: "C", Active: true},
	{ID: "D", Active: false},
	{ID: "A", Active: true},
}

func newEngine(t *testing.T, clock period.Clock, dir member.Directory, opts ...dues.Option) (*dues.Dues, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]dues.Option{
		dues.WithClock(clock),
		dues.WithLocation(time.UTC),
		dues.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		dues.WithRetry(50, time.Microsecond, time.Millisecond),
	}, opts...)
	d := dues.New(s, dir, opts...)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { _ = d.Stop() })
	return d, s
}

func chargeFor(t *testing.T, s *memory.Store, memberID string, p period.Period) *charge.Charge {
	t.Helper()
	c, err := s.GetChargeByKey(context.Background(), memberID, p)
	require.NoError(t, err)
	return c
}

// ──────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────

func TestConfigDefaults(t *testing.T) {
	d, _ := newEngine(t, clockAt(2025, 1, 10), abc)

	cfg, err := d.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fee.Default(), cfg)
}

func TestConfigPartialRecord(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	amount := types.Money(6000)
	grace := 40
	require.NoError(t, s.PutFeeConfig(ctx, &fee.Overrides{
		FeeAmount:   &amount,
		Delinquency: &fee.DelinquencyOverrides{GraceDayOfMonth: &grace},
	}))

	cfg, err := d.Config(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6000, cfg.FeeAmount)
	assert.Equal(t, fee.DefaultGraceDayOfMonth, cfg.Delinquency.GraceDayOfMonth)
	assert.Equal(t, fee.DefaultEarlyPaymentPct, cfg.EarlyPayment.Percent)
}

func TestConfigSnapshotIsolated(t *testing.T) {
	d, _ := newEngine(t, clockAt(2025, 1, 10), abc)

	cfg, err := d.Config(context.Background())
	require.NoError(t, err)
	cfg.EarlyPayment.ValidDays[0] = 28

	again, err := d.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fee.DefaultValidDays(), again.EarlyPayment.ValidDays)
}

func TestSetConfigValidation(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	bad := types.Money(-1)
	pct := types.Percent(20000)
	err := d.SetConfig(ctx, &fee.Overrides{
		FeeAmount:    &bad,
		EarlyPayment: &fee.EarlyPaymentOverrides{Percent: &pct},
	})
	require.Error(t, err)
	assert.True(t, dues.IsValidation(err))
	assert.ErrorIs(t, err, dues.ErrInvalidConfig)

	var multi dues.MultiError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 2)

	var first, second dues.ValidationError
	require.ErrorAs(t, multi.Errors[0], &first)
	require.ErrorAs(t, multi.Errors[1], &second)
	assert.Equal(t, "early_payment.percent", first.Field)
	assert.Equal(t, "fee_amount", second.Field)

	_, err = s.GetFeeConfig(ctx)
	assert.ErrorIs(t, err, dues.ErrConfigNotFound)
}

func TestValidateOverridesUsesTags(t *testing.T) {
	grace := 0
	days := []int{1, 32}
	err := dues.ValidateOverrides(&fee.Overrides{
		EarlyPayment: &fee.EarlyPaymentOverrides{ValidDays: days},
		Delinquency:  &fee.DelinquencyOverrides{GraceDayOfMonth: &grace},
	})
	require.ErrorIs(t, err, dues.ErrInvalidConfig)

	var multi dues.MultiError
	require.ErrorAs(t, err, &multi)
	fields := make([]string, 0, len(multi.Errors))
	for _, e := range multi.Errors {
		var ve dues.ValidationError
		require.ErrorAs(t, e, &ve)
		assert.NotEmpty(t, ve.Message)
		fields = append(fields, ve.Field)
	}
	assert.Equal(t, []string{"delinquency.grace_day_of_month", "early_payment.valid_days[1]"}, fields)

	fine := types.Money(4000)
	assert.NoError(t, dues.ValidateOverrides(&fee.Overrides{FeeAmount: &fine}))
}

func TestConfigStoreFailure(t *testing.T) {
	s := &failingConfigStore{Store: memory.New()}
	d := dues.New(s, abc, dues.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := d.Config(context.Background())
	assert.ErrorIs(t, err, dues.ErrUnavailable)
}

type failingConfigStore struct {
	*memory.Store
}

func (failingConfigStore) GetFeeConfig(context.Context) (*fee.Overrides, error) {
	return nil, errors.New("connection refused")
}

// ──────────────────────────────────────────────────
// Generation
// ──────────────────────────────────────────────────

func TestGenerateForPeriod(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	report, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Members)
	assert.Equal(t, 3, report.Created)
	assert.Zero(t, report.Existing)

	for _, m := range []string{"A", "B", "C"} {
		c := chargeFor(t, s, m, jan)
		assert.EqualValues(t, 5000, c.TotalAmount)
		assert.EqualValues(t, 5000, c.RemainingBalance)
		assert.Equal(t, charge.StatusPending, c.Status)
	}
	_, err = s.GetChargeByKey(ctx, "D", jan)
	assert.ErrorIs(t, err, dues.ErrChargeNotFound)
}

func TestGenerateForPeriodIdempotent(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	before, err := s.ListCharges(ctx, charge.Single(jan))
	require.NoError(t, err)

	report, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 3, report.Existing)

	after, err := s.ListCharges(ctx, charge.Single(jan))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerateDirectoryUnavailable(t *testing.T) {
	dir := member.DirectoryFunc(func(context.Context) ([]member.Member, error) {
		return nil, errors.New("directory timeout")
	})
	rec := &recorder{}
	d, s := newEngine(t, clockAt(2025, 1, 10), dir, dues.WithPlugin(rec))

	_, err := d.GenerateForPeriod(context.Background(), jan)
	require.Error(t, err)
	assert.ErrorIs(t, err, dues.ErrUnavailable)
	assert.True(t, dues.IsUnavailable(err))

	all, err := s.ListCharges(context.Background(), charge.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 1, rec.count("generation_failed"))
}

func TestGenerateUsesConfiguredFee(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	amount := types.Money(7550)
	require.NoError(t, d.SetConfig(ctx, &fee.Overrides{FeeAmount: &amount}))

	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	assert.EqualValues(t, 7550, chargeFor(t, s, "B", jan).BaseAmount)
}

func TestGenerateRange(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 3, 10), abc)
	ctx := context.Background()

	report, err := d.GenerateRange(ctx, period.MustParse("2024-12"))
	require.NoError(t, err)
	assert.Len(t, report.Periods, 4)
	assert.Equal(t, 12, report.Total)
	assert.Equal(t, period.MustParse("2025-03"), report.To)

	all, err := s.ListCharges(ctx, charge.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 12)

	empty, err := d.GenerateRange(ctx, period.MustParse("2025-04"))
	require.NoError(t, err)
	assert.Empty(t, empty.Periods)
}

func TestGenerateRangeCancelled(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 3, 10), abc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.GenerateRange(ctx, jan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Periods)

	all, err := s.ListCharges(context.Background(), charge.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGenerateConcurrent(t *testing.T) {
	members := make(member.Static, 0, 40)
	for i := range 40 {
		members = append(members, member.Member{ID: string(rune('a'+i%26)) + string(rune('0'+i/26)), Active: true})
	}
	d, s := newEngine(t, clockAt(2025, 1, 10), members, dues.WithWorkers(4))
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := d.GenerateForPeriod(ctx, jan)
			if assert.NoError(t, err) {
				mu.Lock()
				created += r.Created
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, created)
	all, err := s.ListCharges(ctx, charge.Single(jan))
	require.NoError(t, err)
	assert.Len(t, all, 40)
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

func TestRecordPaymentValidation(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	c := chargeFor(t, s, "A", jan)

	_, err = d.RecordPayment(ctx, c.ID, 0, nil)
	assert.ErrorIs(t, err, dues.ErrInvalidAmount)

	_, err = d.RecordPayment(ctx, c.ID, -100, nil)
	assert.ErrorIs(t, err, dues.ErrInvalidAmount)

	_, err = d.RecordPayment(ctx, dues.ChargeID{}, 100, nil)
	assert.True(t, dues.IsNotFound(err))

	_, err = d.RecordPayment(ctx, c.ID, 5001, nil)
	assert.ErrorIs(t, err, dues.ErrOverpayment)

	unchanged := chargeFor(t, s, "A", jan)
	assert.Zero(t, unchanged.AmountPaid)
	assert.Equal(t, c.Version, unchanged.Version)
}

func TestRecordPaymentAccumulates(t *testing.T) {
	rec := &recorder{}
	d, s := newEngine(t, clockAt(2025, 1, 10), abc, dues.WithPlugin(rec))
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	c := chargeFor(t, s, "A", jan)

	got, err := d.RecordPayment(ctx, c.ID, 2000, map[string]string{"ref": "transfer-1"})
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPending, got.Status)
	assert.EqualValues(t, 3000, got.RemainingBalance)

	got, err = d.RecordPayment(ctx, c.ID, 3000, nil)
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPaid, got.Status)
	assert.Zero(t, got.RemainingBalance)
	assert.EqualValues(t, 5000, got.AmountPaid)
	require.Len(t, got.Payments, 2)
	assert.Equal(t, "transfer-1", got.Payments[0].Metadata["ref"])

	_, err = d.RecordPayment(ctx, c.ID, 100, nil)
	assert.ErrorIs(t, err, dues.ErrChargePaid)

	assert.Equal(t, 2, rec.count("payment_recorded"))
	assert.Equal(t, 1, rec.count("charge_paid"))
}

func TestRecordPaymentEarlyDiscount(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 2), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	a := chargeFor(t, s, "A", jan)
	due, err := d.AmountDue(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4500, due)

	got, err := d.RecordPayment(ctx, a.ID, due, nil)
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPaid, got.Status)
	assert.EqualValues(t, 4500, got.TotalAmount)
	require.Len(t, got.Discounts, 1)
	assert.Equal(t, charge.KindEarlyPayment, got.Discounts[0].Kind)

	// Paying the undiscounted amount inside the window is still accepted.
	b := chargeFor(t, s, "B", jan)
	got, err = d.RecordPayment(ctx, b.ID, 5000, nil)
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPaid, got.Status)
	assert.Empty(t, got.Discounts)

	// A partial payment earns no discount.
	c := chargeFor(t, s, "C", jan)
	got, err = d.RecordPayment(ctx, c.ID, 1000, nil)
	require.NoError(t, err)
	assert.Empty(t, got.Discounts)
	due, err = d.AmountDue(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4000, due)
}

func TestRecordPaymentOutsideWindow(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	a := chargeFor(t, s, "A", jan)

	due, err := d.AmountDue(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, due)

	got, err := d.RecordPayment(ctx, a.ID, 4500, nil)
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPending, got.Status)
	assert.EqualValues(t, 500, got.RemainingBalance)
}

func TestRecordPaymentConcurrent(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	a := chargeFor(t, s, "A", jan)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.RecordPayment(ctx, a.ID, 100, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got := chargeFor(t, s, "A", jan)
	assert.EqualValues(t, 2000, got.AmountPaid)
	assert.EqualValues(t, 3000, got.RemainingBalance)
	assert.Len(t, got.Payments, 20)
}

type conflictStore struct {
	*memory.Store
}

func (conflictStore) UpdateCharge(context.Context, *charge.Charge) error {
	return dues.ErrVersionConflict
}

func TestRecordPaymentConflictExhausted(t *testing.T) {
	s := conflictStore{Store: memory.New()}
	rec := &recorder{}
	d := dues.New(s, abc,
		dues.WithClock(clockAt(2025, 1, 10)),
		dues.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		dues.WithRetry(3, time.Microsecond, time.Microsecond),
		dues.WithPlugin(rec),
	)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	a, err := s.GetChargeByKey(ctx, "A", jan)
	require.NoError(t, err)

	_, err = d.RecordPayment(ctx, a.ID, 100, nil)
	assert.ErrorIs(t, err, dues.ErrConflict)
	assert.True(t, dues.IsConflict(err))
	assert.Equal(t, 1, rec.count("write_conflict"))
}

// ──────────────────────────────────────────────────
// Closing
// ──────────────────────────────────────────────────

func TestClosePeriodNotDue(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 15), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	_, err = d.ClosePeriod(ctx, jan, "treasurer")
	assert.ErrorIs(t, err, dues.ErrPeriodNotDue)

	_, err = d.ClosePeriod(ctx, jan.AddMonths(1), "treasurer")
	assert.ErrorIs(t, err, dues.ErrPeriodNotDue)

	_, err = s.GetClosure(ctx, jan)
	assert.ErrorIs(t, err, dues.ErrClosureNotFound)
	assert.Equal(t, charge.StatusPending, chargeFor(t, s, "A", jan).Status)
}

func TestClosePeriodRequiresActor(t *testing.T) {
	d, _ := newEngine(t, clockAt(2025, 1, 20), abc)

	_, err := d.ClosePeriod(context.Background(), jan, "")
	assert.True(t, dues.IsValidation(err))
}

func TestClosePeriod(t *testing.T) {
	rec := &recorder{}
	clock := clockAt(2025, 1, 10)
	d, s := newEngine(t, clock, abc, dues.WithPlugin(rec))
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	_, err = d.RecordPayment(ctx, chargeFor(t, s, "A", jan).ID, 5000, nil)
	require.NoError(t, err)

	clock.Set(2025, 1, 16)
	r, err := d.ClosePeriod(ctx, jan, "treasurer")
	require.NoError(t, err)
	assert.Equal(t, jan, r.Period)
	assert.Equal(t, "treasurer", r.ClosedBy)
	assert.Equal(t, 2, r.Surcharged)

	assert.Equal(t, charge.StatusPaid, chargeFor(t, s, "A", jan).Status)
	for _, m := range []string{"B", "C"} {
		c := chargeFor(t, s, m, jan)
		assert.Equal(t, charge.StatusDelinquent, c.Status)
		assert.EqualValues(t, 5250, c.TotalAmount)
		assert.EqualValues(t, 5250, c.RemainingBalance)
		require.Len(t, c.Surcharges, 1)
		assert.Equal(t, charge.KindDelinquency, c.Surcharges[0].Kind)
	}
	assert.Equal(t, 2, rec.count("surcharge_applied"))
	assert.Equal(t, 1, rec.count("period_closed"))

	// Closing again returns the stored record and changes nothing.
	before := chargeFor(t, s, "B", jan)
	again, err := d.ClosePeriod(ctx, jan, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, r, again)
	assert.Equal(t, before, chargeFor(t, s, "B", jan))
	assert.Equal(t, 1, rec.count("period_closed"))
}

func TestClosePeriodSurchargeDisabled(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 2, 1), abc)
	ctx := context.Background()
	off := false
	require.NoError(t, d.SetConfig(ctx, &fee.Overrides{Delinquency: &fee.DelinquencyOverrides{Enabled: &off}}))
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	_, err = d.ClosePeriod(ctx, jan, "treasurer")
	require.NoError(t, err)

	c := chargeFor(t, s, "B", jan)
	assert.Equal(t, charge.StatusDelinquent, c.Status)
	assert.Empty(t, c.Surcharges)
	assert.EqualValues(t, 5000, c.TotalAmount)
}

func TestClosePeriodConcurrent(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 20), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records []*closure.Record
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := d.ClosePeriod(ctx, jan, "treasurer")
			if assert.NoError(t, err) {
				mu.Lock()
				records = append(records, r)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, r := range records[1:] {
		assert.Equal(t, records[0], r)
	}
	for _, m := range []string{"A", "B", "C"} {
		c := chargeFor(t, s, m, jan)
		assert.Len(t, c.Surcharges, 1)
		assert.EqualValues(t, 5250, c.TotalAmount)
	}
}

func TestPaymentAfterDelinquency(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 20), abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	_, err = d.ClosePeriod(ctx, jan, "treasurer")
	require.NoError(t, err)

	c := chargeFor(t, s, "B", jan)
	_, err = d.RecordPayment(ctx, c.ID, 5000, nil)
	require.NoError(t, err)
	got, err := d.RecordPayment(ctx, c.ID, 250, nil)
	require.NoError(t, err)
	assert.Equal(t, charge.StatusPaid, got.Status)
}

// ──────────────────────────────────────────────────
// Aggregation
// ──────────────────────────────────────────────────

func TestEndToEnd(t *testing.T) {
	clock := clockAt(2025, 1, 10)
	d, s := newEngine(t, clock, abc)
	ctx := context.Background()

	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	ov, err := d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Members)
	assert.Zero(t, ov.Collected)
	assert.EqualValues(t, 15000, ov.Pending)
	assert.Zero(t, ov.CollectionRate)

	_, err = d.RecordPayment(ctx, chargeFor(t, s, "A", jan).ID, 5000, nil)
	require.NoError(t, err)

	ov, err = d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, ov.Collected)
	assert.EqualValues(t, 10000, ov.Pending)
	assert.EqualValues(t, 3333, ov.CollectionRate)
	assert.Empty(t, ov.Delinquent)

	clock.Set(2025, 1, 20)
	_, err = d.ClosePeriod(ctx, jan, "treasurer")
	require.NoError(t, err)

	var total types.Money
	for _, m := range []string{"B", "C"} {
		c := chargeFor(t, s, m, jan)
		assert.Equal(t, charge.StatusDelinquent, c.Status)
		total += c.RemainingBalance
	}
	assert.Equal(t, types.MustParseMoney("105.00"), total)
	assert.Equal(t, "52.50", chargeFor(t, s, "B", jan).TotalAmount.String())

	ov, err = d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, ov.Collected)
	assert.EqualValues(t, 10500, ov.Pending)
	assert.Equal(t, []string{"B", "C"}, ov.Delinquent)
	assert.Equal(t, 2, ov.DelinquentMembers)

	sum, err := d.MemberSummary(ctx, "B", jan)
	require.NoError(t, err)
	assert.EqualValues(t, 5250, sum.Total)
	assert.True(t, sum.Delinquent)
	require.Len(t, sum.Items, 1)
	assert.True(t, sum.Items[0].PastGrace)

	sum, err = d.MemberSummary(ctx, "A", jan)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.False(t, sum.Delinquent)
	assert.Empty(t, sum.Items)
}

func TestMemberSummaryAcrossPeriods(t *testing.T) {
	clock := clockAt(2025, 2, 5)
	d, s := newEngine(t, clock, abc)
	ctx := context.Background()

	_, err := d.GenerateRange(ctx, jan)
	require.NoError(t, err)
	_, err = d.RecordPayment(ctx, chargeFor(t, s, "C", jan).ID, 2000, nil)
	require.NoError(t, err)

	sum, err := d.MemberSummary(ctx, "C", jan)
	require.NoError(t, err)
	assert.EqualValues(t, 3000+5000, sum.Total)
	require.Len(t, sum.Items, 2)
	assert.Equal(t, jan, sum.Items[0].Period)
	assert.True(t, sum.Items[0].PastGrace)
	assert.False(t, sum.Items[1].PastGrace)
	assert.True(t, sum.Delinquent)

	// Only the current period is open and it has not reached its grace day.
	sum, err = d.MemberSummary(ctx, "C", jan.AddMonths(1))
	require.NoError(t, err)
	assert.EqualValues(t, 5000, sum.Total)
	assert.False(t, sum.Delinquent)
}

func TestGraceBoundaryInclusive(t *testing.T) {
	clock := clockAt(2025, 1, 15)
	d, _ := newEngine(t, clock, abc)
	ctx := context.Background()
	_, err := d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)

	sum, err := d.MemberSummary(ctx, "A", jan)
	require.NoError(t, err)
	assert.False(t, sum.Delinquent)

	clock.Set(2025, 1, 16)
	sum, err = d.MemberSummary(ctx, "A", jan)
	require.NoError(t, err)
	assert.True(t, sum.Delinquent)

	ov, err := d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.Equal(t, 3, ov.DelinquentMembers)
}

func TestCollectionRateBounds(t *testing.T) {
	d, s := newEngine(t, clockAt(2025, 1, 10), abc)
	ctx := context.Background()

	ov, err := d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.Zero(t, ov.CollectionRate)

	_, err = d.GenerateForPeriod(ctx, jan)
	require.NoError(t, err)
	for _, m := range []string{"A", "B", "C"} {
		_, err := d.RecordPayment(ctx, chargeFor(t, s, m, jan).ID, 5000, nil)
		require.NoError(t, err)
	}

	ov, err = d.PortfolioOverview(ctx, jan)
	require.NoError(t, err)
	assert.EqualValues(t, types.BasisPoints, ov.CollectionRate)
	assert.Zero(t, ov.Pending)
}

func TestOverviewDirectoryUnavailable(t *testing.T) {
	dir := member.DirectoryFunc(func(context.Context) ([]member.Member, error) {
		return nil, errors.New("down")
	})
	d, _ := newEngine(t, clockAt(2025, 1, 10), dir)

	_, err := d.PortfolioOverview(context.Background(), jan)
	assert.ErrorIs(t, err, dues.ErrUnavailable)
}

// ──────────────────────────────────────────────────
// Plugin recorder
// ──────────────────────────────────────────────────

type recorder struct {
	mu     sync.Mutex
	events map[string]int
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[ev]++
}

func (r *recorder) count(ev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[ev]
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnGenerationFailed(context.Context, period.Period, error) error {
	r.add("generation_failed")
	return nil
}

func (r *recorder) OnPaymentRecorded(context.Context, *charge.Charge, *charge.Payment) error {
	r.add("payment_recorded")
	return nil
}

func (r *recorder) OnChargePaid(context.Context, *charge.Charge) error {
	r.add("charge_paid")
	return nil
}

func (r *recorder) OnSurchargeApplied(context.Context, *charge.Charge, charge.Adjustment) error {
	r.add("surcharge_applied")
	return nil
}

func (r *recorder) OnPeriodClosed(context.Context, *closure.Record) error {
	r.add("period_closed")
	return nil
}

func (r *recorder) OnWriteConflict(context.Context, string, string) error {
	r.add("write_conflict")
	return nil
}
