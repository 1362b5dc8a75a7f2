package evm

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var deadAddress = ethcommon.HexToAddress("0x000000000000000000000000000000000000dEaD")

func testKey(t *testing.T) []byte {
	t.Helper()
	b, err := codec.HexToBytes(testKeyHex)
	require.NoError(t, err)
	return b
}

func TestSignLegacyEIP155(t *testing.T) {
	priv := testKey(t)
	params := &TxParams{
		Nonce:    0,
		GasPrice: big.NewInt(0x3b9aca00),
		GasLimit: big.NewInt(21000),
		To:       deadAddress.Bytes(),
		Value:    big.NewInt(0),
		ChainID:  big.NewInt(1),
	}

	signed, err := Sign(params, priv)
	require.NoError(t, err)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw))
	assert.Equal(t, uint8(types.LegacyTxType), decoded.Type())
	assert.Equal(t, signed.Hash, decoded.Hash().Hex())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), &decoded)
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", sender.Hex())

	v, _, _ := decoded.RawSignatureValues()
	assert.Contains(t, []int64{37, 38}, v.Int64())

	key, err := crypto.ToECDSA(priv)
	require.NoError(t, err)
	reference, err := types.SignTx(
		types.NewTransaction(0, deadAddress, big.NewInt(0), 21000, big.NewInt(0x3b9aca00), nil),
		types.NewEIP155Signer(big.NewInt(1)),
		key,
	)
	require.NoError(t, err)
	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, codec.BytesToHex(refRaw), signed.RawHex())
}

func TestSignLegacyWithoutChainID(t *testing.T) {
	priv := testKey(t)
	signed, err := Sign(&TxParams{
		Nonce:    7,
		GasPrice: big.NewInt(1),
		GasLimit: big.NewInt(21000),
		To:       deadAddress.Bytes(),
		Value:    big.NewInt(5),
	}, priv)
	require.NoError(t, err)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw))
	v, _, _ := decoded.RawSignatureValues()
	assert.Contains(t, []int64{27, 28}, v.Int64())

	sender, err := types.Sender(types.HomesteadSigner{}, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", sender.Hex())
}

func TestSignEIP1559(t *testing.T) {
	priv := testKey(t)
	chainID := big.NewInt(11155111)
	params := &TxParams{
		Nonce:          3,
		MaxPriorityFee: big.NewInt(2_000_000_000),
		MaxFee:         big.NewInt(40_000_000_000),
		GasLimit:       big.NewInt(60000),
		To:             deadAddress.Bytes(),
		Value:          new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		Data:           []byte{0xa9, 0x05, 0x9c, 0xbb},
		ChainID:        chainID,
		Is1559:         true,
	}

	signed, err := Sign(params, priv)
	require.NoError(t, err)
	assert.Equal(t, byte(DynamicFeeTxType), signed.Raw[0])

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(signed.Raw))
	assert.Equal(t, uint8(types.DynamicFeeTxType), decoded.Type())
	assert.Equal(t, uint64(3), decoded.Nonce())
	assert.Equal(t, params.MaxFee, decoded.GasFeeCap())
	assert.Equal(t, params.MaxPriorityFee, decoded.GasTipCap())
	assert.Equal(t, signed.Hash, decoded.Hash().Hex())

	v, _, _ := decoded.RawSignatureValues()
	assert.Contains(t, []int64{0, 1}, v.Int64())

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), &decoded)
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", sender.Hex())

	key, err := crypto.ToECDSA(priv)
	require.NoError(t, err)
	reference, err := types.SignTx(types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     3,
		GasTipCap: params.MaxPriorityFee,
		GasFeeCap: params.MaxFee,
		Gas:       60000,
		To:        &deadAddress,
		Value:     params.Value,
		Data:      params.Data,
	}), types.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)
	refRaw, err := reference.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, refRaw, signed.Raw)
}

func TestSignRejectsBadInput(t *testing.T) {
	priv := testKey(t)

	_, err := Sign(&TxParams{Is1559: true, GasLimit: big.NewInt(1), To: deadAddress.Bytes()}, priv)
	assert.Error(t, err)

	_, err = Sign(&TxParams{GasLimit: big.NewInt(1), To: []byte{1, 2, 3}}, priv)
	assert.Error(t, err)

	_, err = Sign(&TxParams{GasLimit: big.NewInt(-1), To: deadAddress.Bytes()}, priv)
	assert.Error(t, err)

	_, err = Sign(&TxParams{GasLimit: big.NewInt(1)}, []byte{1})
	assert.Error(t, err)
}
