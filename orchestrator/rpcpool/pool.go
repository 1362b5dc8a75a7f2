package rpcpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
)

// Pool spreads calls across several endpoints and fails over on transport
// errors. It implements Caller.
type Pool struct {
	chain           string
	endpoints       []*Endpoint
	picker          picker
	strategy        LoadBalancingStrategy
	threshold       int
	exclusionPeriod time.Duration
	logger          zerolog.Logger
	mu              sync.RWMutex
}

// NewPool dials every url with opts.
func NewPool(ctx context.Context, chain string, urls []string, opts Options, logger zerolog.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, oerrors.NewConfigError(chain, "no RPC URLs configured")
	}

	endpoints := make([]*Endpoint, 0, len(urls))
	for _, url := range urls {
		client, err := Dial(ctx, chain, url, opts, logger)
		if err != nil {
			for _, ep := range endpoints {
				ep.Caller.(*Client).Close()
			}
			return nil, err
		}
		endpoints = append(endpoints, NewEndpoint(url, client))
	}
	return NewPoolFromEndpoints(chain, endpoints, opts, logger), nil
}

// NewPoolFromEndpoints builds a pool over prepared endpoints.
func NewPoolFromEndpoints(chain string, endpoints []*Endpoint, opts Options, logger zerolog.Logger) *Pool {
	threshold := opts.UnhealthyThreshold
	if threshold <= 0 {
		threshold = DefaultOptions().UnhealthyThreshold
	}
	period := opts.ExclusionPeriod
	if period <= 0 {
		period = DefaultOptions().ExclusionPeriod
	}

	pk, strategy := newPicker(opts.Strategy)
	p := &Pool{
		chain:           chain,
		endpoints:       endpoints,
		picker:          pk,
		strategy:        strategy,
		threshold:       threshold,
		exclusionPeriod: period,
		logger:          logger.With().Str("component", "rpc_pool").Str("chain", chain).Logger(),
	}

	p.logger.Info().
		Int("endpoint_count", len(endpoints)).
		Str("strategy", string(p.strategy)).
		Msg("rpc pool ready")
	return p
}

// Call tries healthy endpoints until one answers. JSON-RPC error objects
// are returned without failover.
func (p *Pool) Call(ctx context.Context, result any, method string, params ...any) error {
	tried := make(map[*Endpoint]bool, len(p.endpoints))
	var lastErr error

	for len(tried) < len(p.endpoints) {
		endpoint := p.selectEndpoint(tried)
		if endpoint == nil {
			break
		}
		tried[endpoint] = true
		endpoint.touch()

		start := time.Now()
		err := endpoint.Caller.Call(ctx, result, method, params...)
		latency := time.Since(start)

		if err == nil || !IsTransportError(err) {
			p.record(endpoint, nil, latency)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.record(endpoint, err, latency)
		lastErr = err
		p.logger.Warn().
			Str("url", endpoint.URL).
			Str("method", method).
			Err(err).
			Msg("endpoint failed, trying next")
	}

	if lastErr == nil {
		return oerrors.NewNetworkError(p.chain, "no healthy endpoints available", nil)
	}
	return lastErr
}

func (p *Pool) selectEndpoint(exclude map[*Endpoint]bool) *Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	usable := make([]*Endpoint, 0, len(p.endpoints))
	for _, endpoint := range p.endpoints {
		if exclude[endpoint] {
			continue
		}
		if endpoint.readmit(p.exclusionPeriod) {
			p.logger.Info().Str("url", endpoint.URL).Msg("endpoint readmitted after exclusion")
		}
		if endpoint.Usable() {
			usable = append(usable, endpoint)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	return p.picker.pick(usable)
}

func (p *Pool) record(endpoint *Endpoint, err error, latency time.Duration) {
	from, to := endpoint.record(err, latency, p.threshold)
	if from == to {
		return
	}
	event := p.logger.Info()
	if to != StateHealthy {
		event = p.logger.Warn()
	}
	event.
		Str("url", endpoint.URL).
		Str("from", from.String()).
		Str("to", to.String()).
		Float64("success_rate", endpoint.SuccessRate()).
		Msg("endpoint state changed")
}

// Stats returns a snapshot of every endpoint.
func (p *Pool) Stats() *EndpointStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := &EndpointStats{
		Chain:          p.chain,
		TotalEndpoints: len(p.endpoints),
		Strategy:       string(p.strategy),
		Endpoints:      make([]EndpointInfo, len(p.endpoints)),
	}
	for i, endpoint := range p.endpoints {
		stats.Endpoints[i] = endpoint.info()
		if endpoint.Usable() {
			stats.HealthyCount++
		}
	}
	return stats
}

// Close closes every endpoint transport.
func (p *Pool) Close() {
	for _, endpoint := range p.endpoints {
		if c, ok := endpoint.Caller.(closer); ok {
			c.Close()
		}
	}
}

func (p *Pool) String() string {
	return fmt.Sprintf("rpcpool(%s, %d endpoints)", p.chain, len(p.endpoints))
}
