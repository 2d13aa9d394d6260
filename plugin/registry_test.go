package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dues/charge"
	"github.com/xraph/dues/plugin"
)

type nameOnly struct{ name string }

func (n nameOnly) Name() string { return n.name }

type paidCounter struct {
	nameOnly
	paid atomic.Int32
	err  error
}

func (p *paidCounter) OnChargePaid(context.Context, *charge.Charge) error {
	p.paid.Add(1)
	return p.err
}

type slowShutdown struct {
	nameOnly
	release chan struct{}
}

func (s *slowShutdown) OnShutdown(context.Context) error {
	<-s.release
	return nil
}

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.Register(nameOnly{"a"}))
	require.Error(t, r.Register(nameOnly{"a"}))
	require.NoError(t, r.Register(nameOnly{"b"}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, "b", r.Get("b").Name())
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestDispatchReachesOnlyImplementers(t *testing.T) {
	r := quietRegistry()
	counter := &paidCounter{nameOnly: nameOnly{"counter"}}
	require.NoError(t, r.Register(nameOnly{"bare"}))
	require.NoError(t, r.Register(counter))

	r.EmitChargePaid(context.Background(), &charge.Charge{})
	r.EmitChargePaid(context.Background(), &charge.Charge{})
	r.EmitShutdown(context.Background())

	assert.Equal(t, int32(2), counter.paid.Load())
}

func TestHookErrorsDoNotPropagate(t *testing.T) {
	r := quietRegistry()
	failing := &paidCounter{nameOnly: nameOnly{"failing"}, err: errors.New("boom")}
	ok := &paidCounter{nameOnly: nameOnly{"ok"}}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(ok))

	r.EmitChargePaid(context.Background(), &charge.Charge{})

	assert.Equal(t, int32(1), failing.paid.Load())
	assert.Equal(t, int32(1), ok.paid.Load())
}

func TestSlowHookIsBounded(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	slow := &slowShutdown{nameOnly: nameOnly{"slow"}, release: make(chan struct{})}
	defer close(slow.release)
	require.NoError(t, r.Register(slow))

	start := time.Now()
	r.EmitShutdown(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)
}
