package rpcpool

import (
	"time"

	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
)

// Options is the transport policy applied to every endpoint.
type Options struct {
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	Strategy           LoadBalancingStrategy
	UnhealthyThreshold int
	ExclusionPeriod    time.Duration
	Headers            map[string]string
}

// DefaultOptions returns 10s timeout, 2 retries, 200ms fixed backoff.
func DefaultOptions() Options {
	return Options{
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		Strategy:           StrategyRoundRobin,
		UnhealthyThreshold: 3,
		ExclusionPeriod:    time.Minute,
	}
}

// RetryPolicy derives the transport retry policy from the defaults, one
// attempt plus MaxRetries on a fixed RetryBackoff.
func (o Options) RetryPolicy() *oerrors.RetryConfig {
	policy := oerrors.DefaultRetryConfig()
	if o.MaxRetries >= 0 {
		policy.MaxAttempts = o.MaxRetries + 1
	}
	if o.RetryBackoff > 0 {
		policy.InitialDelay = o.RetryBackoff
		policy.MaxDelay = o.RetryBackoff
	}
	return policy
}

// OptionsFromConfig maps the rpc config section onto Options.
func OptionsFromConfig(cfg config.RPCConfig) Options {
	opts := DefaultOptions()
	if cfg.RequestTimeoutSeconds > 0 {
		opts.Timeout = cfg.RequestTimeout()
	}
	if cfg.MaxRetries >= 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBackoffMs > 0 {
		opts.RetryBackoff = cfg.RetryBackoff()
	}
	if cfg.LoadBalancingStrategy != "" {
		opts.Strategy = LoadBalancingStrategy(cfg.LoadBalancingStrategy)
	}
	if cfg.UnhealthyThreshold > 0 {
		opts.UnhealthyThreshold = cfg.UnhealthyThreshold
	}
	return opts
}

// EndpointStats represents statistics for endpoints
type EndpointStats struct {
	Chain          string         `json:"chain"`
	TotalEndpoints int            `json:"total_endpoints"`
	HealthyCount   int            `json:"healthy_count"`
	Strategy       string         `json:"strategy"`
	Endpoints      []EndpointInfo `json:"endpoints"`
}

// EndpointInfo represents information about a single endpoint
type EndpointInfo struct {
	URL            string    `json:"url"`
	State          string    `json:"state"`
	HealthScore    float64   `json:"health_score"`
	LastUsed       time.Time `json:"last_used"`
	RequestCount   uint64    `json:"request_count"`
	FailureCount   uint64    `json:"failure_count"`
	AverageLatency float64   `json:"average_latency_ms"`
	LastError      string    `json:"last_error,omitempty"`
}
