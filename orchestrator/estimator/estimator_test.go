package estimator

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

func TestEVMEstimateFillsFees(t *testing.T) {
	rpc := testutils.NewFakeRPC().
		On("eth_estimateGas", "0x5208").
		On("eth_gasPrice", "0x3b9aca00")
	deps := testutils.SetupDeps(t, rpc)
	testutils.CreateDefaultChain(t, deps.Repo, store.ProtocolEVM, 1, false)
	r := NewRouter(deps, nil)

	tx := &store.Transaction{From: testutils.EVMTestAddress, To: testutils.EVMDeadAddress, Value: "1000"}
	est, err := r.Estimate(context.Background(), store.ProtocolEVM, tx)
	require.NoError(t, err)

	// ceil(21000 * 1.12) = 23520 gas at 1 gwei
	want := new(big.Int).Mul(big.NewInt(23520), big.NewInt(1_000_000_000))
	want.Add(want, big.NewInt(1000))
	assert.Equal(t, want.String(), est.TotalRequired.String())
	assert.Equal(t, "wei", est.Unit)
	assert.Equal(t, "23520", est.Details["gas_limit"])
	require.NotNil(t, tx.GasLimit)
	assert.Equal(t, "23520", *tx.GasLimit)
	require.NotNil(t, tx.Gwei)
	assert.Equal(t, "1000000000", *tx.Gwei)

	meta := est.CostMeta()
	assert.Equal(t, want.String(), meta.TotalRequired)
}

func TestEVMEstimateUsesPreparedFields(t *testing.T) {
	rpc := testutils.NewFakeRPC()
	deps := testutils.SetupDeps(t, rpc)
	r := NewRouter(deps, nil)

	gas, maxFee, tip := "21000", "40", "2"
	tx := &store.Transaction{Value: "0x10", GasLimit: &gas, FeeMax: &maxFee, PriorityMax: &tip, Is1559: true}
	est, err := r.Estimate(context.Background(), store.ProtocolEVM, tx)
	require.NoError(t, err)
	assert.Equal(t, "840016", est.TotalRequired.String())
	assert.Equal(t, "2", est.Details["max_priority_fee"])
	assert.Zero(t, rpc.Called("eth_gasPrice"))
	assert.Zero(t, rpc.Called("eth_estimateGas"))
}

func TestSolanaEstimate(t *testing.T) {
	r := NewRouter(testutils.SetupDeps(t, testutils.NewFakeRPC()), nil)
	ctx := context.Background()

	est, err := r.Estimate(ctx, store.ProtocolSolana, &store.Transaction{Value: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "6000", est.TotalRequired.String())
	assert.Equal(t, "lamports", est.Unit)

	tx := &store.Transaction{Value: "999", Meta: store.Meta{Solana: &store.SolanaMeta{Operation: store.SolanaOpCreateToken}}}
	est, err = r.Estimate(ctx, store.ProtocolSolana, tx)
	require.NoError(t, err)
	assert.Equal(t, "10000", est.TotalRequired.String())
	assert.Equal(t, "2", est.Details["signatures"])
}

func TestSuiEstimate(t *testing.T) {
	ctx := context.Background()

	rpc := testutils.NewFakeRPC().On("suix_getReferenceGasPrice", "750")
	r := NewRouter(testutils.SetupDeps(t, rpc), nil)
	est, err := r.Estimate(ctx, store.ProtocolSui, &store.Transaction{Value: "5"})
	require.NoError(t, err)
	assert.Equal(t, "750005", est.TotalRequired.String())
	assert.Empty(t, est.Details["warning"])

	r = NewRouter(testutils.SetupDeps(t, testutils.NewFakeRPC()), nil)
	est, err = r.Estimate(ctx, store.ProtocolSui, &store.Transaction{})
	require.NoError(t, err)
	assert.Equal(t, "1000000", est.TotalRequired.String())
	assert.Contains(t, est.Details["warning"], "suix_getReferenceGasPrice")
}

func TestFlatEstimates(t *testing.T) {
	r := NewRouter(testutils.SetupDeps(t, testutils.NewFakeRPC()), nil)
	ctx := context.Background()

	tests := []struct {
		protocol store.Protocol
		tx       *store.Transaction
		total    string
		unit     string
	}{
		{store.ProtocolBitcoin, &store.Transaction{Value: "500"}, "1500", "sat"},
		{store.ProtocolXRPL, &store.Transaction{Value: "100"}, "112", "drops"},
		{store.ProtocolXRPL, &store.Transaction{Value: "100", Meta: store.Meta{XRPL: &store.XRPLMeta{Fee: "15"}}}, "115", "drops"},
		{store.ProtocolCardano, &store.Transaction{}, "200000", "lovelace"},
		{store.ProtocolHedera, &store.Transaction{Value: "7"}, "100000000", "tinybar"},
		{store.ProtocolTON, &store.Transaction{Value: "1"}, "10000001", "nanoton"},
	}
	for _, tt := range tests {
		t.Run(tt.protocol.String(), func(t *testing.T) {
			est, err := r.Estimate(ctx, tt.protocol, tt.tx)
			require.NoError(t, err)
			assert.Equal(t, tt.total, est.TotalRequired.String())
			assert.Equal(t, tt.unit, est.Unit)
		})
	}
}

func TestEstimateErrors(t *testing.T) {
	ctx := context.Background()
	r := NewRouter(testutils.SetupDeps(t, testutils.NewFakeRPC()), nil)

	_, err := r.Estimate(ctx, store.ProtocolBitcoin, &store.Transaction{Value: "-1"})
	assert.Equal(t, oerrors.ErrCodeValidation, oerrors.CodeOf(err))

	empty := NewRouterWith(map[store.Protocol]Strategy{})
	_, err = empty.Estimate(ctx, store.ProtocolEVM, &store.Transaction{})
	assert.Equal(t, oerrors.ErrCodeConfig, oerrors.CodeOf(err))
}
