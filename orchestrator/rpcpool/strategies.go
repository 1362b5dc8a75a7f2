package rpcpool

import (
	"math/rand"
	"sync/atomic"
)

// LoadBalancingStrategy names how calls are spread across usable endpoints.
type LoadBalancingStrategy string

const (
	StrategyRoundRobin LoadBalancingStrategy = "round-robin"
	StrategyWeighted   LoadBalancingStrategy = "weighted"
)

// picker chooses among usable endpoints; candidates is never empty.
type picker interface {
	pick(candidates []*Endpoint) *Endpoint
}

type roundRobin struct {
	next atomic.Uint32
}

func (r *roundRobin) pick(candidates []*Endpoint) *Endpoint {
	i := r.next.Add(1) - 1
	return candidates[int(i)%len(candidates)]
}

// weighted picks proportionally to health score, degrading to round-robin
// when every score is zero.
type weighted struct {
	fallback roundRobin
}

func (w *weighted) pick(candidates []*Endpoint) *Endpoint {
	scores := make([]float64, len(candidates))
	total := 0.0
	for i, ep := range candidates {
		scores[i] = ep.HealthScore()
		total += scores[i]
	}
	if total == 0 {
		return w.fallback.pick(candidates)
	}
	target := rand.Float64() * total
	for i, s := range scores {
		if target < s {
			return candidates[i]
		}
		target -= s
	}
	return candidates[len(candidates)-1]
}

// newPicker resolves a strategy name; unknown names mean round-robin.
func newPicker(s LoadBalancingStrategy) (picker, LoadBalancingStrategy) {
	if s == StrategyWeighted {
		return &weighted{}, StrategyWeighted
	}
	return &roundRobin{}, StrategyRoundRobin
}
