// Package estimator computes the native-unit cost a transaction needs
// before it is submitted. Only the EVM strategy reads live fee data; the
// others are flat approximations.
package estimator

import (
	"context"
	"math/big"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/evm"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Estimate is the cost of a transaction in the protocol's base unit.
type Estimate struct {
	TotalRequired *big.Int
	Unit          string
	Details       map[string]string
}

// CostMeta renders e for storage on the transaction.
func (e *Estimate) CostMeta() *store.CostMeta {
	return &store.CostMeta{
		TotalRequired: e.TotalRequired.String(),
		Unit:          e.Unit,
		Details:       e.Details,
	}
}

// Strategy estimates one protocol.
type Strategy interface {
	Estimate(ctx context.Context, tx *store.Transaction) (*Estimate, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, tx *store.Transaction) (*Estimate, error)

// Estimate implements Strategy.
func (f StrategyFunc) Estimate(ctx context.Context, tx *store.Transaction) (*Estimate, error) {
	return f(ctx, tx)
}

// Router dispatches to the strategy of a protocol.
type Router struct {
	strategies map[store.Protocol]Strategy
}

// NewRouter registers the default strategy of every protocol. fees may be
// nil, in which case a resolver logging through deps is created.
func NewRouter(deps common.Deps, fees *evm.FeeResolver) *Router {
	if fees == nil {
		fees = evm.NewFeeResolver(deps.Logger)
	}
	callers := &callerSource{repo: deps.Repo, resolver: deps.RPC}
	return NewRouterWith(map[store.Protocol]Strategy{
		store.ProtocolEVM:     &evmStrategy{fees: fees, callers: callers},
		store.ProtocolSolana:  StrategyFunc(estimateSolana),
		store.ProtocolBitcoin: flat("bitcoin", "sat", BitcoinFlatFee, true),
		store.ProtocolSui:     &suiStrategy{callers: callers},
		store.ProtocolXRPL:    StrategyFunc(estimateXRPL),
		store.ProtocolCardano: flat("cardano", "lovelace", CardanoFlatFee, true),
		store.ProtocolHedera:  flat("hedera", "tinybar", HederaFlatFee, false),
		store.ProtocolTON:     flat("ton", "nanoton", TONFlatFee, true),
	})
}

// NewRouterWith uses exactly the given strategies.
func NewRouterWith(strategies map[store.Protocol]Strategy) *Router {
	return &Router{strategies: strategies}
}

// Estimate computes the cost of tx on protocol p.
func (r *Router) Estimate(ctx context.Context, p store.Protocol, tx *store.Transaction) (*Estimate, error) {
	s, ok := r.strategies[p]
	if !ok {
		return nil, oerrors.NewConfigError(p.String(), "no cost estimator registered for protocol")
	}
	return s.Estimate(ctx, tx)
}

// value parses tx.Value, treating empty as zero.
func value(chain string, tx *store.Transaction) (*big.Int, error) {
	if tx.Value == "" {
		return new(big.Int), nil
	}
	v, err := codec.ParseBigInt(tx.Value)
	if err != nil {
		return nil, oerrors.NewValidationError(chain, "value: "+err.Error())
	}
	if v.Sign() < 0 {
		return nil, oerrors.NewValidationError(chain, "value must not be negative")
	}
	return v, nil
}

type callerSource struct {
	repo     *db.Repository
	resolver rpcpool.Resolver
}

// caller resolves the endpoint serving tx's network.
func (c *callerSource) caller(ctx context.Context, p store.Protocol, tx *store.Transaction) (rpcpool.Caller, error) {
	var (
		chain *store.Blockchain
		err   error
	)
	if tx.BlockchainID != nil {
		chain, err = c.repo.GetBlockchain(ctx, *tx.BlockchainID)
	} else {
		chain, err = c.repo.DefaultBlockchain(ctx, p)
		if oerrors.Is(err, db.ErrNotFound) {
			chain, err = nil, nil
		}
	}
	if err != nil {
		return nil, oerrors.NewDatabaseError(p.String(), "load blockchain", err)
	}
	return c.resolver.Resolve(ctx, p, chain)
}
