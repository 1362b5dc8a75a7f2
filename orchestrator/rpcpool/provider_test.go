package rpcpool

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

func TestProvider(t *testing.T) {
	cfg := &config.Config{
		Protocols: map[string]config.ProtocolConfig{
			"evm": {
				Enabled:    true,
				RPCURLs:    []string{"https://default"},
				RPCHeaders: map[string]string{"X-Api-Key": "k"},
			},
		},
	}

	type dialed struct {
		urls    []string
		headers map[string]string
	}
	var dials []dialed
	p := NewProvider(cfg, zerolog.Nop()).WithDialer(func(_ context.Context, _ string, urls []string, opts Options) (Caller, error) {
		dials = append(dials, dialed{urls: urls, headers: opts.Headers})
		return &fakeCaller{name: urls[0]}, nil
	})
	ctx := context.Background()

	t.Run("protocol default is cached", func(t *testing.T) {
		c1, err := p.Resolve(ctx, store.ProtocolEVM, nil)
		require.NoError(t, err)
		c2, err := p.Resolve(ctx, store.ProtocolEVM, &store.Blockchain{})
		require.NoError(t, err)
		assert.Same(t, c1, c2)
		require.Len(t, dials, 1)
		assert.Equal(t, []string{"https://default"}, dials[0].urls)
		assert.Equal(t, "k", dials[0].headers["X-Api-Key"])
	})

	t.Run("blockchain endpoints win", func(t *testing.T) {
		chain := &store.Blockchain{Protocol: store.ProtocolEVM, RPC: "https://primary", RPCAlternates: []string{"https://alt"}}
		chain.ID = 7
		_, err := p.Resolve(ctx, store.ProtocolEVM, chain)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://primary", "https://alt"}, dials[len(dials)-1].urls)
	})

	t.Run("missing configuration", func(t *testing.T) {
		_, err := p.Resolve(ctx, store.ProtocolTON, nil)
		assert.True(t, oerrors.IsChainError(err, oerrors.ErrCodeConfig))
	})
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.RPCConfig{
		RequestTimeoutSeconds: 3,
		MaxRetries:            5,
		RetryBackoffMs:        50,
		LoadBalancingStrategy: "weighted",
	})
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, StrategyWeighted, opts.Strategy)
	assert.Equal(t, 3, int(opts.Timeout.Seconds()))
	assert.Equal(t, 50, int(opts.RetryBackoff.Milliseconds()))
	assert.Equal(t, 3, opts.UnhealthyThreshold)
}
