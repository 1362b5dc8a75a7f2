package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const (
	// FallbackGasPrice is used when fee RPCs fail: 1 gwei.
	FallbackGasPrice = 1_000_000_000

	// FallbackGasLimit is used for plain transfers when estimation fails.
	FallbackGasLimit = 21000

	gasMarginNumerator   = 112
	gasMarginDenominator = 100
)

// FeeQuote is a resolved gas limit and price set.
type FeeQuote struct {
	GasLimit       *big.Int
	GasEstimate    *big.Int
	GasPrice       *big.Int // legacy
	MaxFee         *big.Int // EIP-1559
	MaxPriorityFee *big.Int // EIP-1559
	Is1559         bool
	Warnings       []string
}

// EffectiveGasPrice is the per-gas worst case: maxFee for EIP-1559,
// gasPrice otherwise.
func (q *FeeQuote) EffectiveGasPrice() *big.Int {
	if q.Is1559 {
		return q.MaxFee
	}
	return q.GasPrice
}

// MaxCost returns gasLimit * effective gas price.
func (q *FeeQuote) MaxCost() *big.Int {
	return new(big.Int).Mul(q.GasLimit, q.EffectiveGasPrice())
}

// FeeResolver fills missing gas and fee fields. RPC failures fall back to
// constants and are reported as warnings.
type FeeResolver struct {
	logger zerolog.Logger
}

// NewFeeResolver creates a fee resolver.
func NewFeeResolver(logger zerolog.Logger) *FeeResolver {
	return &FeeResolver{logger: logger.With().Str("component", "evm_fee_resolver").Logger()}
}

// Resolve computes a quote for tx, keeping any field the caller already set.
func (f *FeeResolver) Resolve(ctx context.Context, caller rpcpool.Caller, tx *store.Transaction) (*FeeQuote, error) {
	q := &FeeQuote{Is1559: tx.Is1559}

	gasLimit, err := codec.ParseOptionalBigInt(tx.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gas limit: %w", err)
	}
	if gasLimit == nil {
		gasLimit, q.GasEstimate, err = f.estimateGas(ctx, caller, tx)
		if err != nil {
			q.Warnings = append(q.Warnings, "estimateGas: "+err.Error())
		}
	}
	q.GasLimit = gasLimit

	if q.Is1559 {
		if err := f.resolve1559(ctx, caller, tx, q); err != nil {
			return nil, err
		}
	} else {
		price, err := codec.ParseOptionalBigInt(tx.Gwei)
		if err != nil {
			return nil, fmt.Errorf("invalid gas price: %w", err)
		}
		if price == nil {
			price = f.gasPrice(ctx, caller, q)
		}
		q.GasPrice = price
	}

	if len(q.Warnings) > 0 {
		f.logger.Warn().Strs("warnings", q.Warnings).Uint("tx_id", tx.ID).Msg("fee resolution used fallbacks")
	}
	return q, nil
}

// Apply resolves fees and writes them onto tx as decimal strings.
func (f *FeeResolver) Apply(ctx context.Context, caller rpcpool.Caller, tx *store.Transaction) (*FeeQuote, error) {
	q, err := f.Resolve(ctx, caller, tx)
	if err != nil {
		return nil, err
	}

	gas := q.GasLimit.String()
	tx.GasLimit = &gas
	if q.Is1559 {
		maxFee, tip := q.MaxFee.String(), q.MaxPriorityFee.String()
		tx.FeeMax = &maxFee
		tx.PriorityMax = &tip
	} else {
		price := q.GasPrice.String()
		tx.Gwei = &price
	}

	if q.GasEstimate != nil || len(q.Warnings) > 0 {
		if tx.Meta.EVM == nil {
			tx.Meta.EVM = &store.EVMMeta{}
		}
		if q.GasEstimate != nil {
			tx.Meta.EVM.GasEstimate = q.GasEstimate.String()
		}
		tx.Meta.EVM.FeeWarnings = append(tx.Meta.EVM.FeeWarnings, q.Warnings...)
	}
	return q, nil
}

func (f *FeeResolver) resolve1559(ctx context.Context, caller rpcpool.Caller, tx *store.Transaction, q *FeeQuote) error {
	tip, err := codec.ParseOptionalBigInt(tx.PriorityMax)
	if err != nil {
		return fmt.Errorf("invalid priority fee: %w", err)
	}
	if tip == nil {
		var out hexutil.Big
		if err := caller.Call(ctx, &out, "eth_maxPriorityFeePerGas"); err != nil {
			q.Warnings = append(q.Warnings, "eth_maxPriorityFeePerGas: "+err.Error())
			tip = big.NewInt(FallbackGasPrice)
		} else {
			tip = out.ToInt()
		}
	}
	q.MaxPriorityFee = tip

	maxFee, err := codec.ParseOptionalBigInt(tx.FeeMax)
	if err != nil {
		return fmt.Errorf("invalid max fee: %w", err)
	}
	if maxFee == nil {
		// 2 * gasPrice + tip tolerates one full base fee doubling
		price := f.gasPrice(ctx, caller, q)
		maxFee = new(big.Int).Mul(price, big.NewInt(2))
		maxFee.Add(maxFee, tip)
	}
	q.MaxFee = maxFee
	return nil
}

func (f *FeeResolver) gasPrice(ctx context.Context, caller rpcpool.Caller, q *FeeQuote) *big.Int {
	var out hexutil.Big
	if err := caller.Call(ctx, &out, "eth_gasPrice"); err != nil {
		q.Warnings = append(q.Warnings, "eth_gasPrice: "+err.Error())
		return big.NewInt(FallbackGasPrice)
	}
	return out.ToInt()
}

// estimateGas returns ceil(estimate * 1.12) and the raw estimate. Plain
// transfers fall back to 21000 on failure.
func (f *FeeResolver) estimateGas(ctx context.Context, caller rpcpool.Caller, tx *store.Transaction) (*big.Int, *big.Int, error) {
	call, err := callObject(tx)
	if err != nil {
		return big.NewInt(FallbackGasLimit), nil, err
	}

	var out hexutil.Big
	if err := caller.Call(ctx, &out, "eth_estimateGas", call); err != nil {
		return big.NewInt(FallbackGasLimit), nil, err
	}
	estimate := out.ToInt()
	return WithGasMargin(estimate), estimate, nil
}

// WithGasMargin returns ceil(gas * 112 / 100).
func WithGasMargin(gas *big.Int) *big.Int {
	n := new(big.Int).Mul(gas, big.NewInt(gasMarginNumerator))
	n.Add(n, big.NewInt(gasMarginDenominator-1))
	return n.Div(n, big.NewInt(gasMarginDenominator))
}

// callObject renders tx as an eth_call / eth_estimateGas argument.
func callObject(tx *store.Transaction) (map[string]any, error) {
	call := map[string]any{}
	if tx.From != "" {
		call["from"] = tx.From
	}
	if tx.To != "" {
		call["to"] = tx.To
	}
	if tx.Value != "" {
		value, err := codec.DecimalToHex(tx.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		call["value"] = value
	}
	if tx.Data != "" && tx.Data != "0x" {
		data, err := codec.HexToBytes(tx.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
		call["data"] = codec.BytesToHex(data)
	}
	return call, nil
}
