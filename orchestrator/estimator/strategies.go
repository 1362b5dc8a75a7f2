package estimator

import (
	"context"
	"math/big"
	"strconv"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/evm"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/xrpl"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Flat fees in base units.
const (
	SolanaFeePerSignature = 5000
	BitcoinFlatFee        = 1000
	SuiGasBudgetUnits     = 1000
	SuiFallbackGasPrice   = 1000
	CardanoFlatFee        = 200000
	HederaFlatFee         = 100000000
	TONFlatFee            = 10000000
)

type evmStrategy struct {
	fees    *evm.FeeResolver
	callers *callerSource
}

// Estimate fills any missing gas and fee fields on tx, then returns
// value + gasLimit * effective gas price.
func (s *evmStrategy) Estimate(ctx context.Context, tx *store.Transaction) (*Estimate, error) {
	v, err := value("evm", tx)
	if err != nil {
		return nil, err
	}
	caller, err := s.callers.caller(ctx, store.ProtocolEVM, tx)
	if err != nil {
		return nil, err
	}
	q, err := s.fees.Apply(ctx, caller, tx)
	if err != nil {
		return nil, oerrors.NewValidationError("evm", err.Error())
	}

	fee, err := codec.HexMul(codec.BigToHex(q.GasLimit), codec.BigToHex(q.EffectiveGasPrice()))
	if err != nil {
		return nil, oerrors.NewInternalError("evm", "fee arithmetic", err)
	}
	total, err := codec.HexAdd(codec.BigToHex(v), fee)
	if err != nil {
		return nil, oerrors.NewInternalError("evm", "fee arithmetic", err)
	}
	sum, _ := codec.ParseBigInt(total)

	details := map[string]string{
		"gas_limit":           q.GasLimit.String(),
		"effective_gas_price": q.EffectiveGasPrice().String(),
		"fee":                 mustDecimal(fee),
	}
	if q.Is1559 {
		details["max_priority_fee"] = q.MaxPriorityFee.String()
	}
	return &Estimate{TotalRequired: sum, Unit: "wei", Details: details}, nil
}

func mustDecimal(hex string) string {
	d, err := codec.HexToDecimal(hex)
	if err != nil {
		return hex
	}
	return d
}

// estimateSolana charges the signature floor; token creation is also signed
// by the mint key.
func estimateSolana(_ context.Context, tx *store.Transaction) (*Estimate, error) {
	signatures := int64(1)
	transfer := new(big.Int)
	if tx.Meta.Solana != nil && tx.Meta.Solana.Operation == store.SolanaOpCreateToken {
		signatures = 2
	} else {
		v, err := value("solana", tx)
		if err != nil {
			return nil, err
		}
		transfer = v
	}
	fee := big.NewInt(SolanaFeePerSignature * signatures)
	return &Estimate{
		TotalRequired: new(big.Int).Add(transfer, fee),
		Unit:          "lamports",
		Details: map[string]string{
			"signatures": strconv.FormatInt(signatures, 10),
			"fee":        fee.String(),
		},
	}, nil
}

type suiStrategy struct {
	callers *callerSource
}

// Estimate prices the default budget at the reference gas price.
func (s *suiStrategy) Estimate(ctx context.Context, tx *store.Transaction) (*Estimate, error) {
	v, err := value("sui", tx)
	if err != nil {
		return nil, err
	}
	details := map[string]string{}
	price := big.NewInt(SuiFallbackGasPrice)

	caller, err := s.callers.caller(ctx, store.ProtocolSui, tx)
	if err == nil {
		var ref string
		err = caller.Call(ctx, &ref, "suix_getReferenceGasPrice")
		if err == nil {
			if p, ok := new(big.Int).SetString(ref, 10); ok {
				price = p
			}
		}
	}
	if err != nil {
		details["warning"] = "suix_getReferenceGasPrice: " + err.Error()
	}

	fee := new(big.Int).Mul(price, big.NewInt(SuiGasBudgetUnits))
	details["gas_price"] = price.String()
	details["fee"] = fee.String()
	return &Estimate{TotalRequired: new(big.Int).Add(v, fee), Unit: "mist", Details: details}, nil
}

// estimateXRPL uses the staged fee when prepare fetched one.
func estimateXRPL(_ context.Context, tx *store.Transaction) (*Estimate, error) {
	v, err := value("xrpl", tx)
	if err != nil {
		return nil, err
	}
	feeStr := xrpl.DefaultFeeDrops
	if tx.Meta.XRPL != nil && tx.Meta.XRPL.Fee != "" {
		feeStr = tx.Meta.XRPL.Fee
	}
	fee, ok := new(big.Int).SetString(feeStr, 10)
	if !ok {
		return nil, oerrors.NewValidationErrorf("xrpl", "invalid staged fee %q", feeStr)
	}
	return &Estimate{
		TotalRequired: new(big.Int).Add(v, fee),
		Unit:          "drops",
		Details:       map[string]string{"fee": fee.String()},
	}, nil
}

// flat charges a constant fee, plus the value when withValue is set.
func flat(chain, unit string, fee int64, withValue bool) Strategy {
	return StrategyFunc(func(_ context.Context, tx *store.Transaction) (*Estimate, error) {
		total := big.NewInt(fee)
		if withValue {
			v, err := value(chain, tx)
			if err != nil {
				return nil, err
			}
			total.Add(total, v)
		}
		return &Estimate{
			TotalRequired: total,
			Unit:          unit,
			Details:       map[string]string{"fee": strconv.FormatInt(fee, 10), "approximate": "true"},
		}, nil
	})
}
