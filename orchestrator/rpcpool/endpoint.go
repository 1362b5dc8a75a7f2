package rpcpool

import (
	"sync"
	"time"
)

// EndpointState is where an endpoint sits in the failover rotation.
type EndpointState int

const (
	StateHealthy EndpointState = iota
	StateDegraded
	StateExcluded
)

var stateNames = [...]string{"healthy", "degraded", "excluded"}

func (s EndpointState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// latency EMA weight of the newest sample
const latencyAlpha = 0.1

// Endpoint is one RPC URL, its caller and its rolling health. All mutable
// fields are guarded by mu.
type Endpoint struct {
	URL    string
	Caller Caller

	mu          sync.Mutex
	state       EndpointState
	excludedAt  time.Time
	lastUsed    time.Time
	total       uint64
	failed      uint64
	streak      int // consecutive failures
	avgLatency  time.Duration
	lastErr     error
	lastErrTime time.Time
}

// NewEndpoint wraps caller; new endpoints start healthy.
func NewEndpoint(url string, caller Caller) *Endpoint {
	return &Endpoint{URL: url, Caller: caller}
}

// State returns the current rotation state.
func (e *Endpoint) State() EndpointState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Usable reports whether the endpoint may receive traffic.
func (e *Endpoint) Usable() bool {
	return e.State() != StateExcluded
}

func (e *Endpoint) setState(s EndpointState) {
	if s == StateExcluded && e.state != StateExcluded {
		e.excludedAt = time.Now()
	}
	e.state = s
}

// Exclude takes the endpoint out of rotation.
func (e *Endpoint) Exclude() {
	e.mu.Lock()
	e.setState(StateExcluded)
	e.mu.Unlock()
}

// readmit moves an excluded endpoint back to degraded once period has
// elapsed so live traffic tries it again.
func (e *Endpoint) readmit(period time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateExcluded || time.Since(e.excludedAt) < period {
		return false
	}
	e.state = StateDegraded
	return true
}

func (e *Endpoint) touch() {
	e.mu.Lock()
	e.lastUsed = time.Now()
	e.mu.Unlock()
}

// record folds one call outcome into the endpoint's health and applies the
// state rules: threshold consecutive failures exclude, a success rate under
// 50% degrades, and a degraded endpoint above 80% recovers. It returns the
// state before and after.
func (e *Endpoint) record(err error, latency time.Duration, threshold int) (from, to EndpointState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from = e.state
	e.total++
	switch {
	case e.avgLatency == 0 && err == nil:
		e.avgLatency = latency
	case e.avgLatency > 0 && latency > 0:
		e.avgLatency = time.Duration(float64(e.avgLatency)*(1-latencyAlpha) + float64(latency)*latencyAlpha)
	}

	if err == nil {
		e.streak = 0
		if e.state == StateDegraded && e.successRate() > 0.8 {
			e.setState(StateHealthy)
		}
		return from, e.state
	}

	e.failed++
	e.streak++
	e.lastErr = err
	e.lastErrTime = time.Now()
	switch {
	case e.streak >= threshold:
		e.setState(StateExcluded)
	case e.state == StateHealthy && e.successRate() < 0.5:
		e.setState(StateDegraded)
	}
	return from, e.state
}

func (e *Endpoint) successRate() float64 {
	if e.total == 0 {
		return 1
	}
	return float64(e.total-e.failed) / float64(e.total)
}

// SuccessRate is the share of calls that reached the node.
func (e *Endpoint) SuccessRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.successRate()
}

// HealthScore is 0-100: the success rate minus 5 points per second of
// average latency above 1s (max 20) and 10 per consecutive failure (max 50).
func (e *Endpoint) HealthScore() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthScore()
}

func (e *Endpoint) healthScore() float64 {
	score := e.successRate() * 100
	if over := e.avgLatency.Seconds() - 1; over > 0 {
		score -= min(over*5, 20)
	}
	score -= min(float64(e.streak)*10, 50)
	return max(score, 0)
}

func (e *Endpoint) info() EndpointInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := EndpointInfo{
		URL:            e.URL,
		State:          e.state.String(),
		HealthScore:    e.healthScore(),
		LastUsed:       e.lastUsed,
		RequestCount:   e.total,
		FailureCount:   e.failed,
		AverageLatency: float64(e.avgLatency.Milliseconds()),
	}
	if e.lastErr != nil {
		info.LastError = e.lastErr.Error()
	}
	return info
}
