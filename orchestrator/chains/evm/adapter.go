package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pushchain/chain-orchestrator/orchestrator/abi"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "evm"

// Adapter is the reference protocol implementation: native and ERC-20
// intents run through the lifecycle pipeline and are signed locally.
type Adapter struct {
	*common.Base
	fees *FeeResolver
}

var (
	_ common.Adapter                    = (*Adapter)(nil)
	_ common.HasSequence                = (*Adapter)(nil)
	_ common.ProtocolTransactionAdapter = (*Adapter)(nil)
)

// NewAdapter creates the EVM adapter.
func NewAdapter(deps common.Deps) *Adapter {
	a := &Adapter{fees: NewFeeResolver(deps.Logger)}
	a.Base = common.NewBase(store.ProtocolEVM, deps, normalizeAddress, "evm_adapter")
	return a
}

// FeeResolver exposes the resolver shared with the cost estimator.
func (a *Adapter) FeeResolver() *FeeResolver {
	return a.fees
}

func normalizeAddress(address string) (string, error) {
	out, err := codec.NormalizeEVMAddress(strings.TrimSpace(address))
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return out, nil
}

// ValidateAddress accepts all-lowercase, all-uppercase or correctly
// checksummed addresses.
func (a *Adapter) ValidateAddress(address string) bool {
	return codec.ValidateEVMAddress(address, false)
}

// ChecksumAddress returns the EIP-55 display form.
func (a *Adapter) ChecksumAddress(address string) (string, error) {
	out, err := codec.ToChecksumAddress(address)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return out, nil
}

// GetNativeBalance returns the wei balance at the latest block.
func (a *Adapter) GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error) {
	caller, err := a.Caller(ctx, wallet)
	if err != nil {
		return "", err
	}
	var out hexutil.Big
	if err := caller.Call(ctx, &out, "eth_getBalance", wallet.Address, "latest"); err != nil {
		return "", err
	}
	return out.ToInt().String(), nil
}

// GetTokenBalance calls balanceOf(owner) on the token contract.
func (a *Adapter) GetTokenBalance(ctx context.Context, token *store.Token, owner *store.Wallet) (string, error) {
	data, err := abi.ERC20BalanceOf(owner.Address)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.callUint(ctx, owner, token.Contract.Address, data)
}

// Allowance calls allowance(owner, spender) on the token contract.
func (a *Adapter) Allowance(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error) {
	spender, err := a.NormalizeAddress(spender)
	if err != nil {
		return "", err
	}
	data, err := abi.ERC20Allowance(owner.Address, spender)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.callUint(ctx, owner, token.Contract.Address, data)
}

func (a *Adapter) callUint(ctx context.Context, wallet *store.Wallet, contract string, data []byte) (string, error) {
	caller, err := a.Caller(ctx, wallet)
	if err != nil {
		return "", err
	}
	call := map[string]any{"to": contract, "data": codec.BytesToHex(data)}
	var out hexutil.Bytes
	if err := caller.Call(ctx, &out, "eth_call", call, "latest"); err != nil {
		return "", err
	}
	n, err := abi.DecodeUint256(out)
	if err != nil {
		return "", oerrors.NewRPCError(chainName, "decode eth_call result", err)
	}
	return n.String(), nil
}

// TransferNative runs a value transfer through the pipeline.
func (a *Adapter) TransferNative(ctx context.Context, from *store.Wallet, to string, amount string) (string, error) {
	to, err := a.NormalizeAddress(to)
	if err != nil {
		return "", err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	tx, err := a.intent(ctx, from, to, value.String(), "")
	if err != nil {
		return "", err
	}
	return a.RunIntent(ctx, tx)
}

// TransferToken runs transfer(to, amount) against the token contract.
func (a *Adapter) TransferToken(ctx context.Context, token *store.Token, from *store.Wallet, to, amount string) (string, error) {
	to, err := a.NormalizeAddress(to)
	if err != nil {
		return "", err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	data, err := abi.ERC20Transfer(to, value)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.runTokenCall(ctx, token, from, data)
}

// ApproveToken runs approve(spender, amount).
func (a *Adapter) ApproveToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender, amount string) (string, error) {
	spender, err := a.NormalizeAddress(spender)
	if err != nil {
		return "", err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	data, err := abi.ERC20Approve(spender, value)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.runTokenCall(ctx, token, owner, data)
}

// RevokeToken approves zero.
func (a *Adapter) RevokeToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error) {
	return a.ApproveToken(ctx, token, owner, spender, "0")
}

func (a *Adapter) runTokenCall(ctx context.Context, token *store.Token, from *store.Wallet, data []byte) (string, error) {
	contract, err := a.NormalizeAddress(token.Contract.Address)
	if err != nil {
		return "", err
	}
	tx, err := a.intent(ctx, from, contract, "0", codec.BytesToHex(data))
	if err != nil {
		return "", err
	}
	contractID := token.ContractID
	tx.ContractID = &contractID
	tx.Meta.EVM = &store.EVMMeta{TokenAddress: contract}
	return a.RunIntent(ctx, tx)
}

func (a *Adapter) intent(ctx context.Context, from *store.Wallet, to, value, data string) (*store.Transaction, error) {
	if !from.HasKey() {
		return nil, oerrors.NewValidationErrorf(chainName, "wallet %d cannot sign", from.ID)
	}
	chain, err := a.Chain(ctx, from)
	if err != nil {
		return nil, err
	}

	tx := &store.Transaction{
		WalletID: from.ID,
		From:     from.Address,
		To:       to,
		Value:    value,
		Data:     data,
	}
	if chain != nil {
		id := chain.ID
		tx.BlockchainID = &id
		tx.Is1559 = chain.SupportsEIP1559
		if chain.ChainID != 0 {
			cid := chain.ChainID
			tx.ChainID = &cid
		}
	}
	return tx, nil
}

func parseAmount(amount string) (*big.Int, error) {
	v, err := codec.ParseBigInt(amount)
	if err != nil {
		return nil, oerrors.NewValidationError(chainName, err.Error())
	}
	if v.Sign() < 0 {
		return nil, oerrors.NewValidationError(chainName, "amount must not be negative")
	}
	return v, nil
}

// GetSequence returns the pending nonce of address.
func (a *Adapter) GetSequence(ctx context.Context, address string) (uint64, error) {
	caller, err := a.Deps().RPC.Resolve(ctx, store.ProtocolEVM, nil)
	if err != nil {
		return 0, err
	}
	return pendingNonce(ctx, caller, address)
}

func pendingNonce(ctx context.Context, caller rpcpool.Caller, address string) (uint64, error) {
	var out hexutil.Uint64
	if err := caller.Call(ctx, &out, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, err
	}
	return uint64(out), nil
}

// PrepareTransaction fills from, chain id, nonce, gas and fees.
func (a *Adapter) PrepareTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	caller, err := a.TxCaller(ctx, tx, wallet)
	if err != nil {
		return err
	}
	if tx.From == "" {
		tx.From = wallet.Address
	}

	if tx.ChainID == nil {
		var out hexutil.Uint64
		if err := caller.Call(ctx, &out, "eth_chainId"); err != nil {
			return err
		}
		cid := uint64(out)
		tx.ChainID = &cid
	}

	if tx.Nonce == nil {
		nonce, err := pendingNonce(ctx, caller, tx.From)
		if err != nil {
			return err
		}
		tx.Nonce = &nonce
	}

	if _, err := a.fees.Apply(ctx, caller, tx); err != nil {
		return oerrors.NewValidationError(chainName, err.Error())
	}
	return nil
}

// SubmitTransaction signs tx with the wallet key and broadcasts it.
func (a *Adapter) SubmitTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) (string, error) {
	params, err := txParams(tx)
	if err != nil {
		return "", err
	}

	kp, err := a.KeyPair(wallet)
	if err != nil {
		return "", err
	}
	signed, err := Sign(params, kp.PrivateKey)
	kp.Wipe()
	if err != nil {
		return "", oerrors.NewTransactionError(chainName, "sign transaction", err)
	}

	caller, err := a.TxCaller(ctx, tx, wallet)
	if err != nil {
		return "", err
	}
	var hash string
	if err := caller.Call(ctx, &hash, "eth_sendRawTransaction", signed.RawHex()); err != nil {
		return "", err
	}
	if !strings.EqualFold(hash, signed.Hash) {
		a.Logger().Warn().Str("node_hash", hash).Str("local_hash", signed.Hash).Msg("node returned unexpected transaction hash")
	}

	a.TouchWallet(ctx, wallet)
	a.Logger().Info().Uint("tx_id", tx.ID).Str("tx_hash", hash).Msg("transaction broadcast")
	return hash, nil
}

func txParams(tx *store.Transaction) (*TxParams, error) {
	if tx.Nonce == nil || tx.GasLimit == nil {
		return nil, oerrors.NewValidationError(chainName, "transaction is not prepared")
	}
	p := &TxParams{Nonce: *tx.Nonce, Is1559: tx.Is1559}

	var err error
	if p.GasLimit, err = codec.ParseBigInt(*tx.GasLimit); err != nil {
		return nil, oerrors.NewValidationError(chainName, "gas limit: "+err.Error())
	}
	if tx.ChainID != nil {
		p.ChainID = new(big.Int).SetUint64(*tx.ChainID)
	}
	if p.Value, err = parseAmount(valueOrZero(tx.Value)); err != nil {
		return nil, err
	}

	if tx.Is1559 {
		if p.MaxFee, err = codec.ParseOptionalBigInt(tx.FeeMax); err != nil || p.MaxFee == nil {
			return nil, oerrors.NewValidationError(chainName, "max fee missing or invalid")
		}
		if p.MaxPriorityFee, err = codec.ParseOptionalBigInt(tx.PriorityMax); err != nil || p.MaxPriorityFee == nil {
			return nil, oerrors.NewValidationError(chainName, "priority fee missing or invalid")
		}
	} else {
		if p.GasPrice, err = codec.ParseOptionalBigInt(tx.Gwei); err != nil || p.GasPrice == nil {
			return nil, oerrors.NewValidationError(chainName, "gas price missing or invalid")
		}
	}

	if tx.To != "" {
		to, err := normalizeAddress(tx.To)
		if err != nil {
			return nil, err
		}
		p.To, _ = codec.HexToBytes(to)
	}
	if tx.Data != "" {
		if p.Data, err = codec.HexToBytes(tx.Data); err != nil {
			return nil, oerrors.NewValidationError(chainName, err.Error())
		}
	}
	return p, nil
}

func valueOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

type rpcReceipt struct {
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	Status      *hexutil.Uint64 `json:"status"`
}

// CheckConfirmations reads the receipt and the current head.
func (a *Adapter) CheckConfirmations(ctx context.Context, tx *store.Transaction) (*common.Receipt, error) {
	if tx.TxHash == nil {
		return nil, oerrors.NewValidationError(chainName, "transaction has no hash")
	}
	caller, err := a.TxCaller(ctx, tx, nil)
	if err != nil {
		return nil, err
	}

	var receipt *rpcReceipt
	if err := caller.Call(ctx, &receipt, "eth_getTransactionReceipt", *tx.TxHash); err != nil {
		return nil, err
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return &common.Receipt{Found: false}, nil
	}

	var head hexutil.Uint64
	if err := caller.Call(ctx, &head, "eth_blockNumber"); err != nil {
		return nil, err
	}

	r := &common.Receipt{
		Found:         true,
		BlockHeight:   receipt.BlockNumber.ToInt().Uint64(),
		CurrentHeight: uint64(head),
		Success:       receipt.Status == nil || *receipt.Status == 1,
	}
	if !r.Success {
		r.Reason = "execution reverted"
	}
	return r, nil
}
