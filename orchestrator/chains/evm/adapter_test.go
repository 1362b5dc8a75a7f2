package evm

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

const (
	deadLower  = "0x000000000000000000000000000000000000dead"
	tokenLower = "0x00000000000000000000000000000000000000aa"
)

func TestAddressHandling(t *testing.T) {
	a, _ := setupTestAdapter(t, testutils.NewFakeRPC())

	assert.True(t, a.ValidateAddress("0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"))
	assert.True(t, a.ValidateAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"))
	assert.False(t, a.ValidateAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65C23"))
	assert.False(t, a.ValidateAddress("2c7536e3605d9c16a7a3d7b1898e529396a65c23"))

	norm, err := a.NormalizeAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23", norm)

	sum, err := a.ChecksumAddress(norm)
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", sum)

	_, err = a.NormalizeAddress("0x1234")
	assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
}

func TestBalances(t *testing.T) {
	rpc := testutils.NewFakeRPC()
	rpc.On("eth_getBalance", "0xde0b6b3a7640000")
	rpc.Handle("eth_call", func(params []any) (any, error) {
		call := params[0].(map[string]any)
		data := call["data"].(string)
		switch {
		case strings.HasPrefix(data, "0x70a08231"): // balanceOf
			return "0x" + strings.Repeat("0", 61) + "3e8", nil
		case strings.HasPrefix(data, "0xdd62ed3e"): // allowance
			return "0x" + strings.Repeat("0", 62) + "ff", nil
		}
		return nil, oerrors.NewRPCError("evm", "unexpected selector", nil)
	})
	a, _ := setupTestAdapter(t, rpc)
	ctx := context.Background()

	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)

	bal, err := a.GetNativeBalance(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal)

	token := &store.Token{Contract: store.Contract{Address: tokenLower}}
	tb, err := a.GetTokenBalance(ctx, token, w)
	require.NoError(t, err)
	assert.Equal(t, "1000", tb)

	allowance, err := a.Allowance(ctx, token, w, deadLower)
	require.NoError(t, err)
	assert.Equal(t, "255", allowance)

	_, err = a.Allowance(ctx, token, w, "not-an-address")
	assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
}

func TestPrepareAndSubmit(t *testing.T) {
	rpc := testutils.NewFakeRPC()
	rpc.On("eth_chainId", "0x1")
	rpc.On("eth_getTransactionCount", "0x5")
	rpc.On("eth_estimateGas", "0x5208")
	rpc.On("eth_gasPrice", "0x3b9aca00")

	var broadcast types.Transaction
	rpc.Handle("eth_sendRawTransaction", func(params []any) (any, error) {
		raw, err := codec.HexToBytes(params[0].(string))
		if err != nil {
			return nil, err
		}
		if err := broadcast.UnmarshalBinary(raw); err != nil {
			return nil, err
		}
		return broadcast.Hash().Hex(), nil
	})

	a, _ := setupTestAdapter(t, rpc)
	ctx := context.Background()
	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)

	tx := &store.Transaction{WalletID: w.ID, To: deadLower, Value: "1000"}
	require.NoError(t, a.PrepareTransaction(ctx, tx, w))

	assert.Equal(t, w.Address, tx.From)
	require.NotNil(t, tx.ChainID)
	assert.Equal(t, uint64(1), *tx.ChainID)
	require.NotNil(t, tx.Nonce)
	assert.Equal(t, uint64(5), *tx.Nonce)
	assert.Equal(t, "23520", *tx.GasLimit)
	assert.Equal(t, "1000000000", *tx.Gwei)

	hash, err := a.SubmitTransaction(ctx, tx, w)
	require.NoError(t, err)
	assert.Equal(t, broadcast.Hash().Hex(), hash)
	assert.Equal(t, uint64(5), broadcast.Nonce())
	assert.Equal(t, big.NewInt(1000), broadcast.Value())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), &broadcast)
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(w.Address, sender.Hex()))
}

func TestSubmitRequiresPreparedTransaction(t *testing.T) {
	a, _ := setupTestAdapter(t, testutils.NewFakeRPC())
	ctx := context.Background()
	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)

	_, err = a.SubmitTransaction(ctx, &store.Transaction{To: deadLower}, w)
	assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
}

func TestCheckConfirmations(t *testing.T) {
	rpc := testutils.NewFakeRPC()
	a, _ := setupTestAdapter(t, rpc)
	ctx := context.Background()

	_, err := a.CheckConfirmations(ctx, &store.Transaction{})
	assert.Error(t, err)

	hash := "0x" + strings.Repeat("ab", 32)
	tx := &store.Transaction{TxHash: &hash}

	rpc.On("eth_getTransactionReceipt", nil)
	r, err := a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.False(t, r.Found)
	assert.Zero(t, rpc.Called("eth_blockNumber"))

	rpc.On("eth_getTransactionReceipt", map[string]string{"blockNumber": "0x10", "status": "0x1"})
	rpc.On("eth_blockNumber", "0x15")
	r, err = a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.True(t, r.Success)
	assert.Equal(t, uint64(6), r.Confirmations())

	rpc.On("eth_getTransactionReceipt", map[string]string{"blockNumber": "0x10", "status": "0x0"})
	r, err = a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "execution reverted", r.Reason)
}

func TestTransferIntents(t *testing.T) {
	a, repo := setupTestAdapter(t, testutils.NewFakeRPC())
	runner := &recordingRunner{}
	a.SetIntentRunner(runner)
	ctx := context.Background()

	chain := &store.Blockchain{
		Name:            "polygon",
		Protocol:        store.ProtocolEVM,
		ChainID:         137,
		RPC:             "http://localhost:8545",
		SupportsEIP1559: true,
		IsDefault:       true,
	}
	require.NoError(t, repo.CreateBlockchain(ctx, chain))

	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)

	t.Run("native", func(t *testing.T) {
		hash, err := a.TransferNative(ctx, w, "0x000000000000000000000000000000000000dEaD", "42")
		require.NoError(t, err)
		assert.Equal(t, "0xabc", hash)

		got := runner.got
		require.NotNil(t, got)
		assert.Equal(t, deadLower, got.To)
		assert.Equal(t, "42", got.Value)
		assert.True(t, got.Is1559)
		require.NotNil(t, got.ChainID)
		assert.Equal(t, uint64(137), *got.ChainID)
		require.NotNil(t, got.BlockchainID)
		assert.Equal(t, chain.ID, *got.BlockchainID)
	})

	t.Run("token", func(t *testing.T) {
		token := &store.Token{Contract: store.Contract{Address: tokenLower}}
		token.ContractID = 9

		_, err := a.TransferToken(ctx, token, w, deadLower, "1000")
		require.NoError(t, err)

		got := runner.got
		assert.Equal(t, tokenLower, got.To)
		assert.Equal(t, "0", got.Value)
		assert.True(t, strings.HasPrefix(got.Data, "0xa9059cbb"))
		require.NotNil(t, got.ContractID)
		assert.Equal(t, uint(9), *got.ContractID)
		assert.Equal(t, tokenLower, got.Meta.EVM.TokenAddress)

		_, err = a.RevokeToken(ctx, token, w, deadLower)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(runner.got.Data, "0x095ea7b3"))
		assert.True(t, strings.HasSuffix(runner.got.Data, strings.Repeat("0", 64)))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := a.TransferNative(ctx, w, deadLower, "-1")
		assert.True(t, oerrors.Is(err, oerrors.ErrValidation))

		ext, err := a.CreateWallet(ctx, common.WalletAttrs{
			WalletType: "external",
			Address:    "0x1111111111111111111111111111111111111111",
		}, nil, nil)
		require.NoError(t, err)
		_, err = a.TransferNative(ctx, ext, deadLower, "1")
		assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
	})
}
