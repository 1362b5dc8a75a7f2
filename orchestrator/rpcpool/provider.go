package rpcpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// DialFunc builds a Caller over urls.
type DialFunc func(ctx context.Context, chain string, urls []string, opts Options) (Caller, error)

// Provider caches one Caller per network descriptor or per protocol
// default. It implements Resolver.
type Provider struct {
	cfg    *config.Config
	opts   Options
	dial   DialFunc
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]Caller
}

// NewProvider creates a provider dialing pools with the configured policy.
func NewProvider(cfg *config.Config, logger zerolog.Logger) *Provider {
	p := &Provider{
		cfg:    cfg,
		opts:   OptionsFromConfig(cfg.RPC),
		logger: logger.With().Str("component", "rpc_provider").Logger(),
		cache:  make(map[string]Caller),
	}
	p.dial = func(ctx context.Context, chain string, urls []string, opts Options) (Caller, error) {
		return NewPool(ctx, chain, urls, opts, logger)
	}
	return p
}

// WithDialer replaces how callers are built.
func (p *Provider) WithDialer(dial DialFunc) *Provider {
	p.dial = dial
	return p
}

// Resolve returns the caller for chain when it lists endpoints, otherwise
// the protocol default from configuration.
func (p *Provider) Resolve(ctx context.Context, protocol store.Protocol, chain *store.Blockchain) (Caller, error) {
	if chain != nil && len(chain.RPCURLs()) > 0 {
		return p.ForBlockchain(ctx, chain)
	}
	return p.ForProtocol(ctx, protocol)
}

// ForBlockchain returns the caller serving a network descriptor.
func (p *Provider) ForBlockchain(ctx context.Context, chain *store.Blockchain) (Caller, error) {
	urls := chain.RPCURLs()
	if len(urls) == 0 {
		return nil, oerrors.NewConfigError(string(chain.Protocol), fmt.Sprintf("blockchain %q has no RPC endpoints", chain.Name))
	}
	key := fmt.Sprintf("chain:%d", chain.ID)
	return p.get(ctx, key, string(chain.Protocol), urls)
}

// ForProtocol returns the caller for the protocol's configured endpoints.
func (p *Provider) ForProtocol(ctx context.Context, protocol store.Protocol) (Caller, error) {
	pc := p.cfg.GetProtocolConfig(string(protocol))
	if len(pc.RPCURLs) == 0 {
		return nil, oerrors.NewConfigError(string(protocol), "no RPC URLs configured")
	}
	return p.get(ctx, "protocol:"+string(protocol), string(protocol), pc.RPCURLs)
}

func (p *Provider) get(ctx context.Context, key, protocol string, urls []string) (Caller, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache[key]; ok {
		return c, nil
	}

	opts := p.opts
	opts.Headers = p.cfg.GetProtocolConfig(protocol).RPCHeaders

	c, err := p.dial(ctx, protocol, urls, opts)
	if err != nil {
		return nil, err
	}
	p.cache[key] = c
	p.logger.Debug().Str("key", key).Int("endpoints", len(urls)).Msg("rpc caller created")
	return c, nil
}

// Close closes every cached caller.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, c := range p.cache {
		if cl, ok := c.(closer); ok {
			cl.Close()
		}
		delete(p.cache, key)
	}
}
