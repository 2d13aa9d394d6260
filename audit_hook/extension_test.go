package audithook_test

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

	"github.com/xraph/dues/audit_hook"
	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/closure"
	"github.com/xraph/dues/period"
	"github.com/xraph/dues/types"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (m *memRecorder) Record(_ context.Context, e *audithook.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

var jan = period.New(2024, time.January)

func TestRecordsLifecycle(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)
	ctx := context.Background()
	c := charge.New("A", jan, types.Units(50), jan.Start(time.UTC))

	require.NoError(t, ext.OnChargeCreated(ctx, c))
	require.NoError(t, ext.OnSurchargeApplied(ctx, c, charge.Adjustment{Kind: charge.KindDelinquency, Amount: types.Cents(250)}))
	require.NoError(t, ext.OnPeriodClosed(ctx, &closure.Record{Period: jan, ClosedBy: "admin", Surcharged: 1}))
	require.NoError(t, ext.OnGenerationFailed(ctx, jan, errors.New("directory down")))

	assert.Equal(t, []string{
		audithook.ActionChargeCreated,
		audithook.ActionSurchargeApplied,
		audithook.ActionPeriodClosed,
		audithook.ActionGenerationFailed,
	}, rec.actions())

	first := rec.events[0]
	assert.Equal(t, c.ID.String(), first.ResourceID)
	assert.Equal(t, "A", first.Metadata["member_id"])
	assert.Equal(t, "50.00", first.Metadata["amount"])

	closed := rec.events[2]
	assert.Equal(t, "2024-01", closed.ResourceID)
	assert.Equal(t, "admin", closed.Metadata["closed_by"])

	failed := rec.events[3]
	assert.Equal(t, audithook.OutcomeFailure, failed.Outcome)
	assert.Equal(t, "directory down", failed.Reason)
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	c := charge.New("A", jan, types.Units(50), jan.Start(time.UTC))

	only := &memRecorder{}
	ext := audithook.New(only, audithook.WithEnabledActions(audithook.ActionChargePaid))
	require.NoError(t, ext.OnChargeCreated(ctx, c))
	require.NoError(t, ext.OnChargePaid(ctx, c))
	assert.Equal(t, []string{audithook.ActionChargePaid}, only.actions())

	skip := &memRecorder{}
	ext = audithook.New(skip, audithook.WithDisabledActions(audithook.ActionChargeCreated))
	require.NoError(t, ext.OnChargeCreated(ctx, c))
	require.NoError(t, ext.OnWriteConflict(ctx, c.ID.String(), "record_payment"))
	assert.Equal(t, []string{audithook.ActionWriteConflict}, skip.actions())
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	ext := audithook.New(failing, audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	c := charge.New("A", jan, types.Units(50), jan.Start(time.UTC))
	assert.NoError(t, ext.OnChargePaid(context.Background(), c))
}
