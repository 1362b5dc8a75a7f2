package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
)

// DynamicFeeTxType is the EIP-2718 envelope byte of EIP-1559 transactions.
const DynamicFeeTxType = 0x02

// TxParams are the signing inputs. All quantities are big integers; To is
// nil for contract creation.
type TxParams struct {
	Nonce          uint64
	GasLimit       *big.Int
	GasPrice       *big.Int // legacy
	MaxPriorityFee *big.Int // EIP-1559
	MaxFee         *big.Int // EIP-1559
	To             []byte
	Value          *big.Int
	Data           []byte
	ChainID        *big.Int
	Is1559         bool
}

// SignedTx is a broadcastable raw transaction.
type SignedTx struct {
	Raw  []byte
	Hash string
}

// RawHex returns the 0x-prefixed raw transaction.
func (s *SignedTx) RawHex() string {
	return codec.BytesToHex(s.Raw)
}

// Sign produces a legacy (EIP-155 when ChainID > 0) or EIP-1559 raw
// transaction signed with the 32 byte secp256k1 key priv.
func Sign(p *TxParams, priv []byte) (*SignedTx, error) {
	if p.To != nil && len(p.To) != 20 {
		return nil, fmt.Errorf("to must be 20 bytes, got %d", len(p.To))
	}
	key, err := crypto.ToECDSA(priv)
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	if p.Is1559 {
		return sign1559(p, func(h []byte) ([]byte, error) { return crypto.Sign(h, key) })
	}
	return signLegacy(p, func(h []byte) ([]byte, error) { return crypto.Sign(h, key) })
}

type signFunc func(hash []byte) ([]byte, error)

func signLegacy(p *TxParams, sign signFunc) (*SignedTx, error) {
	fields, err := encodeFields(p.Nonce, p.GasPrice, p.GasLimit, p.To, p.Value, p.Data)
	if err != nil {
		return nil, err
	}

	chainID := p.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}

	unsigned := fields
	if chainID.Sign() > 0 {
		cid, err := codec.RLPEncodeBig(chainID)
		if err != nil {
			return nil, err
		}
		unsigned = append(append([][]byte{}, fields...), cid, codec.RLPEncodeUint(0), codec.RLPEncodeUint(0))
	}
	sighash := codec.Keccak256(codec.RLPEncodeList(unsigned...))

	sig, err := sign(sighash)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	recID := big.NewInt(int64(sig[64]))
	var v *big.Int
	if chainID.Sign() > 0 {
		// recId + 35 + 2*chainId
		v = new(big.Int).Mul(chainID, big.NewInt(2))
		v.Add(v, big.NewInt(35))
		v.Add(v, recID)
	} else {
		v = new(big.Int).Add(recID, big.NewInt(27))
	}

	tail, err := encodeSignature(v, sig)
	if err != nil {
		return nil, err
	}
	raw := codec.RLPEncodeList(append(fields, tail...)...)
	return &SignedTx{Raw: raw, Hash: codec.BytesToHex(codec.Keccak256(raw))}, nil
}

func sign1559(p *TxParams, sign signFunc) (*SignedTx, error) {
	if p.ChainID == nil || p.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("eip-1559 transactions require a chain id")
	}
	cid, err := codec.RLPEncodeBig(p.ChainID)
	if err != nil {
		return nil, err
	}
	tip, err := codec.RLPEncodeBig(p.MaxPriorityFee)
	if err != nil {
		return nil, err
	}
	feeCap, err := codec.RLPEncodeBig(p.MaxFee)
	if err != nil {
		return nil, err
	}
	gas, err := codec.RLPEncodeBig(p.GasLimit)
	if err != nil {
		return nil, err
	}
	value, err := codec.RLPEncodeBig(p.Value)
	if err != nil {
		return nil, err
	}

	fields := [][]byte{
		cid,
		codec.RLPEncodeUint(p.Nonce),
		tip,
		feeCap,
		gas,
		codec.RLPEncodeBytes(p.To),
		value,
		codec.RLPEncodeBytes(p.Data),
		codec.RLPEncodeList(), // empty access list
	}
	sighash := codec.Keccak256([]byte{DynamicFeeTxType}, codec.RLPEncodeList(fields...))

	sig, err := sign(sighash)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	tail, err := encodeSignature(big.NewInt(int64(sig[64])), sig)
	if err != nil {
		return nil, err
	}
	raw := append([]byte{DynamicFeeTxType}, codec.RLPEncodeList(append(fields, tail...)...)...)
	return &SignedTx{Raw: raw, Hash: codec.BytesToHex(codec.Keccak256(raw))}, nil
}

func encodeFields(nonce uint64, gasPrice, gasLimit *big.Int, to []byte, value *big.Int, data []byte) ([][]byte, error) {
	price, err := codec.RLPEncodeBig(gasPrice)
	if err != nil {
		return nil, err
	}
	gas, err := codec.RLPEncodeBig(gasLimit)
	if err != nil {
		return nil, err
	}
	val, err := codec.RLPEncodeBig(value)
	if err != nil {
		return nil, err
	}
	return [][]byte{
		codec.RLPEncodeUint(nonce),
		price,
		gas,
		codec.RLPEncodeBytes(to),
		val,
		codec.RLPEncodeBytes(data),
	}, nil
}

// encodeSignature returns the RLP items v, r, s.
func encodeSignature(v *big.Int, sig []byte) ([][]byte, error) {
	ve, err := codec.RLPEncodeBig(v)
	if err != nil {
		return nil, err
	}
	r, err := codec.RLPEncodeBig(new(big.Int).SetBytes(sig[:32]))
	if err != nil {
		return nil, err
	}
	s, err := codec.RLPEncodeBig(new(big.Int).SetBytes(sig[32:64]))
	if err != nil {
		return nil, err
	}
	return [][]byte{ve, r, s}, nil
}
