package rpcpool

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
)

type fakeCaller struct {
	name  string
	err   error
	calls int
}

func (f *fakeCaller) Call(_ context.Context, result any, _ string, _ ...any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if out, ok := result.(*string); ok {
		*out = f.name
	}
	return nil
}

func newTestPool(callers ...*fakeCaller) *Pool {
	endpoints := make([]*Endpoint, len(callers))
	for i, c := range callers {
		endpoints[i] = NewEndpoint("http://"+c.name, c)
	}
	opts := DefaultOptions()
	opts.UnhealthyThreshold = 2
	return NewPoolFromEndpoints("evm", endpoints, opts, zerolog.Nop())
}

func TestPoolRoundRobin(t *testing.T) {
	a, b := &fakeCaller{name: "a"}, &fakeCaller{name: "b"}
	pool := newTestPool(a, b)

	seen := map[string]int{}
	for i := 0; i < 4; i++ {
		var out string
		require.NoError(t, pool.Call(context.Background(), &out, "eth_blockNumber"))
		seen[out]++
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, seen)
}

func TestPoolFailover(t *testing.T) {
	bad := &fakeCaller{name: "bad", err: oerrors.NewNetworkError("evm", "connection refused", nil)}
	good := &fakeCaller{name: "good"}
	pool := newTestPool(bad, good)

	for i := 0; i < 4; i++ {
		var out string
		require.NoError(t, pool.Call(context.Background(), &out, "eth_blockNumber"))
		assert.Equal(t, "good", out)
	}

	// excluded after two consecutive failures, never tried again
	assert.Equal(t, 2, bad.calls)
	stats := pool.Stats()
	assert.Equal(t, 1, stats.HealthyCount)
	assert.Equal(t, "excluded", stats.Endpoints[0].State)
	assert.Contains(t, stats.Endpoints[0].LastError, "connection refused")
}

func TestPoolDoesNotFailoverOnRPCError(t *testing.T) {
	rejecting := &fakeCaller{name: "a", err: oerrors.NewRPCError("evm", "execution reverted", nil)}
	other := &fakeCaller{name: "b"}
	pool := newTestPool(rejecting, other)

	var out string
	err := pool.Call(context.Background(), &out, "eth_call")
	assert.ErrorIs(t, err, oerrors.ErrRPC)
	assert.Equal(t, 1, rejecting.calls)
	assert.Equal(t, 0, other.calls)
}

func TestPoolAllEndpointsDown(t *testing.T) {
	a := &fakeCaller{name: "a", err: oerrors.NewTimeoutError("evm", "timed out")}
	b := &fakeCaller{name: "b", err: oerrors.NewNetworkError("evm", "reset", nil)}
	pool := newTestPool(a, b)

	var out string
	err := pool.Call(context.Background(), &out, "eth_blockNumber")
	require.Error(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestEndpointReadmit(t *testing.T) {
	ep := NewEndpoint("http://x", &fakeCaller{})
	ep.Exclude()
	assert.False(t, ep.readmit(time.Hour))
	assert.True(t, ep.readmit(0))
	assert.Equal(t, StateDegraded, ep.State())
	assert.True(t, ep.Usable())
}

func TestEndpointHealth(t *testing.T) {
	ep := NewEndpoint("http://x", nil)
	from, to := ep.record(nil, 50*time.Millisecond, 3)
	assert.Equal(t, StateHealthy, from)
	assert.Equal(t, StateHealthy, to)
	assert.Equal(t, 100.0, ep.HealthScore())

	_, to = ep.record(assert.AnError, 50*time.Millisecond, 3)
	assert.Equal(t, StateHealthy, to)
	assert.InDelta(t, 40.0, ep.HealthScore(), 0.001) // 50% success, one-failure penalty
	assert.Equal(t, 0.5, ep.SuccessRate())

	_, to = ep.record(assert.AnError, 0, 3)
	assert.Equal(t, StateDegraded, to)
	_, to = ep.record(assert.AnError, 0, 3)
	assert.Equal(t, StateExcluded, to)
	assert.Equal(t, 3, int(ep.info().FailureCount))
}

func TestEndpointRecovers(t *testing.T) {
	ep := NewEndpoint("http://x", nil)
	ep.record(assert.AnError, 0, 5)
	ep.record(assert.AnError, 0, 5)
	require.Equal(t, StateDegraded, ep.State())

	for i := 0; i < 9; i++ {
		ep.record(nil, time.Millisecond, 5)
	}
	assert.Equal(t, StateHealthy, ep.State())
}

func TestPickers(t *testing.T) {
	pk, s := newPicker("bogus")
	assert.Equal(t, StrategyRoundRobin, s)
	a, b := NewEndpoint("http://a", nil), NewEndpoint("http://b", nil)
	assert.Same(t, a, pk.pick([]*Endpoint{a, b}))
	assert.Same(t, b, pk.pick([]*Endpoint{a, b}))

	w, s := newPicker(StrategyWeighted)
	assert.Equal(t, StrategyWeighted, s)
	assert.Same(t, a, w.pick([]*Endpoint{a}))

	// a zero-score endpoint is never chosen while another scores
	for i := 0; i < 10; i++ {
		a.record(assert.AnError, 0, 100)
	}
	for i := 0; i < 20; i++ {
		assert.Same(t, b, w.pick([]*Endpoint{a, b}))
	}
}
