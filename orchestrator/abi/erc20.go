package abi

import (
	"fmt"
	"math/big"
)

const (
	erc20TransferSig  = "transfer(address,uint256)"
	erc20ApproveSig   = "approve(address,uint256)"
	erc20BalanceOfSig = "balanceOf(address)"
	erc20AllowanceSig = "allowance(address,address)"
)

// ERC20Transfer encodes transfer(to, amount).
func ERC20Transfer(to string, amount *big.Int) ([]byte, error) {
	return EncodeCall(erc20TransferSig, to, amount)
}

// ERC20Approve encodes approve(spender, amount). A zero amount revokes.
func ERC20Approve(spender string, amount *big.Int) ([]byte, error) {
	return EncodeCall(erc20ApproveSig, spender, amount)
}

// ERC20BalanceOf encodes balanceOf(owner).
func ERC20BalanceOf(owner string) ([]byte, error) {
	return EncodeCall(erc20BalanceOfSig, owner)
}

// ERC20Allowance encodes allowance(owner, spender).
func ERC20Allowance(owner, spender string) ([]byte, error) {
	return EncodeCall(erc20AllowanceSig, owner, spender)
}

// DecodeUint256 decodes a single uint256 return value.
func DecodeUint256(data []byte) (*big.Int, error) {
	if len(data) == 0 {
		return new(big.Int), nil
	}
	out, err := Decode([]*Type{{Kind: UintKind, Size: 256}}, data)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("abi: unexpected uint256 value %T", out[0])
	}
	return n, nil
}
