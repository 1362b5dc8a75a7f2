package rpcpool

import (
	"context"

	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Caller is a JSON-RPC 2.0 request/response channel. result must be a
// pointer; a JSON null leaves it untouched.
type Caller interface {
	Call(ctx context.Context, result any, method string, params ...any) error
}

// Resolver picks the Caller serving a protocol, preferring the endpoints of
// chain when one is given.
type Resolver interface {
	Resolve(ctx context.Context, protocol store.Protocol, chain *store.Blockchain) (Caller, error)
}

// StaticResolver always returns the same Caller.
type StaticResolver struct {
	Caller Caller
}

// Resolve implements Resolver.
func (s StaticResolver) Resolve(context.Context, store.Protocol, *store.Blockchain) (Caller, error) {
	return s.Caller, nil
}

type closer interface {
	Close()
}
