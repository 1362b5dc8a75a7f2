package chains

import (
	"fmt"
	"sort"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/bitcoin"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/cardano"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/evm"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/hedera"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/sui"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/svm"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/ton"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/xrpl"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

type intentAware interface {
	SetIntentRunner(common.IntentRunner)
}

// Router maps each protocol to its adapter. The map is filled at
// construction and never changes afterwards.
type Router struct {
	adapters map[store.Protocol]common.Adapter
}

// NewRouter registers the adapters of every known protocol.
func NewRouter(deps common.Deps) *Router {
	return NewRouterWith(
		evm.NewAdapter(deps),
		svm.NewAdapter(deps),
		bitcoin.NewAdapter(deps),
		sui.NewAdapter(deps),
		xrpl.NewAdapter(deps),
		cardano.NewAdapter(deps),
		hedera.NewAdapter(deps),
		ton.NewAdapter(deps),
	)
}

// NewRouterWith registers the given adapters. A later adapter for the same
// protocol replaces an earlier one.
func NewRouterWith(adapters ...common.Adapter) *Router {
	r := &Router{adapters: make(map[store.Protocol]common.Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Protocol()] = a
	}
	return r
}

// SetIntentRunner wires the lifecycle into adapters whose intent
// operations run through the pipeline.
func (r *Router) SetIntentRunner(runner common.IntentRunner) {
	for _, a := range r.adapters {
		if ia, ok := a.(intentAware); ok {
			ia.SetIntentRunner(runner)
		}
	}
}

// Adapter returns the adapter for p or a CONFIG error.
func (r *Router) Adapter(p store.Protocol) (common.Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, oerrors.NewConfigError(p.String(), "no adapter registered for protocol")
	}
	return a, nil
}

// MustAdapter is Adapter for callers that registered p themselves.
func (r *Router) MustAdapter(p store.Protocol) common.Adapter {
	a, err := r.Adapter(p)
	if err != nil {
		panic(fmt.Sprintf("chains: %v", err))
	}
	return a
}

// TransactionAdapter returns the lifecycle hooks of p, or false when the
// protocol has none.
func (r *Router) TransactionAdapter(p store.Protocol) (common.ProtocolTransactionAdapter, bool, error) {
	a, err := r.Adapter(p)
	if err != nil {
		return nil, false, err
	}
	hooks, ok := a.(common.ProtocolTransactionAdapter)
	return hooks, ok, nil
}

// Protocols lists the registered protocols in AllProtocols order.
func (r *Router) Protocols() []store.Protocol {
	out := make([]store.Protocol, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	order := make(map[store.Protocol]int, len(store.AllProtocols))
	for i, p := range store.AllProtocols {
		order[p] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}
