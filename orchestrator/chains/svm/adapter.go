package svm

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "solana"

// Adapter drives Solana through raw JSON-RPC. Native transfers and token
// creation go through the lifecycle pipeline; SPL token operations are
// built, signed and sent directly.
type Adapter struct {
	*common.Base
}

var (
	_ common.Adapter                    = (*Adapter)(nil)
	_ common.ProtocolTransactionAdapter = (*Adapter)(nil)
)

// NewAdapter creates the Solana adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{Base: common.NewBase(store.ProtocolSolana, deps, normalizeAddress, "svm_adapter")}
}

func normalizeAddress(address string) (string, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return "", oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
	}
	return pk.String(), nil
}

func parsePublicKey(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(address))
	if err != nil {
		return solana.PublicKey{}, oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
	}
	return pk, nil
}

func parseLamports(amount string) (uint64, error) {
	v, err := codec.ParseBigInt(amount)
	if err != nil {
		return 0, oerrors.NewValidationError(chainName, err.Error())
	}
	out, err := ToU64(v)
	if err != nil {
		return 0, oerrors.NewValidationError(chainName, err.Error())
	}
	return out, nil
}

type contextValue[T any] struct {
	Value T `json:"value"`
}

// GetNativeBalance returns the lamport balance.
func (a *Adapter) GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error) {
	caller, err := a.Caller(ctx, wallet)
	if err != nil {
		return "", err
	}
	var out contextValue[uint64]
	if err := caller.Call(ctx, &out, "getBalance", wallet.Address, map[string]any{"commitment": "confirmed"}); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", out.Value), nil
}

// findTokenAccount returns the first token account of owner for mint.
func findTokenAccount(ctx context.Context, caller rpcpool.Caller, owner, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	var out contextValue[[]struct {
		Pubkey string `json:"pubkey"`
	}]
	err := caller.Call(ctx, &out, "getTokenAccountsByOwner",
		owner.String(),
		map[string]any{"mint": mint.String()},
		map[string]any{"encoding": "jsonParsed", "commitment": "confirmed"},
	)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	if len(out.Value) == 0 {
		return solana.PublicKey{}, false, nil
	}
	pk, err := solana.PublicKeyFromBase58(out.Value[0].Pubkey)
	if err != nil {
		return solana.PublicKey{}, false, oerrors.NewRPCError(chainName, "invalid token account in response", err)
	}
	return pk, true, nil
}

// GetTokenBalance returns the raw SPL balance, zero if owner has no token
// account for the mint.
func (a *Adapter) GetTokenBalance(ctx context.Context, token *store.Token, owner *store.Wallet) (string, error) {
	caller, err := a.Caller(ctx, owner)
	if err != nil {
		return "", err
	}
	ownerKey, mint, err := ownerAndMint(owner, token)
	if err != nil {
		return "", err
	}
	account, ok, err := findTokenAccount(ctx, caller, ownerKey, mint)
	if err != nil || !ok {
		return "0", err
	}

	var out contextValue[struct {
		Amount string `json:"amount"`
	}]
	if err := caller.Call(ctx, &out, "getTokenAccountBalance", account.String()); err != nil {
		return "", err
	}
	return out.Value.Amount, nil
}

type parsedTokenAccount struct {
	Data struct {
		Parsed struct {
			Info struct {
				Delegate        string `json:"delegate"`
				DelegatedAmount *struct {
					Amount string `json:"amount"`
				} `json:"delegatedAmount"`
			} `json:"info"`
		} `json:"parsed"`
	} `json:"data"`
}

// Allowance returns the delegated amount when spender is the current
// delegate of the owner's token account.
func (a *Adapter) Allowance(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error) {
	spender, err := a.NormalizeAddress(spender)
	if err != nil {
		return "", err
	}
	caller, err := a.Caller(ctx, owner)
	if err != nil {
		return "", err
	}
	ownerKey, mint, err := ownerAndMint(owner, token)
	if err != nil {
		return "", err
	}
	account, ok, err := findTokenAccount(ctx, caller, ownerKey, mint)
	if err != nil || !ok {
		return "0", err
	}

	var out contextValue[*parsedTokenAccount]
	if err := caller.Call(ctx, &out, "getAccountInfo", account.String(), map[string]any{"encoding": "jsonParsed"}); err != nil {
		return "", err
	}
	if out.Value == nil {
		return "0", nil
	}
	info := out.Value.Data.Parsed.Info
	if info.Delegate != spender || info.DelegatedAmount == nil {
		return "0", nil
	}
	return info.DelegatedAmount.Amount, nil
}

func ownerAndMint(owner *store.Wallet, token *store.Token) (solana.PublicKey, solana.PublicKey, error) {
	ownerKey, err := parsePublicKey(owner.Address)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	mint, err := parsePublicKey(token.Contract.Address)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	return ownerKey, mint, nil
}

// TransferNative runs a lamport transfer through the pipeline.
func (a *Adapter) TransferNative(ctx context.Context, from *store.Wallet, to string, amount string) (string, error) {
	to, err := a.NormalizeAddress(to)
	if err != nil {
		return "", err
	}
	lamports, err := parseLamports(amount)
	if err != nil {
		return "", err
	}
	if !from.HasKey() {
		return "", oerrors.NewValidationErrorf(chainName, "wallet %d cannot sign", from.ID)
	}

	tx := &store.Transaction{
		WalletID:     from.ID,
		BlockchainID: from.BlockchainID,
		From:         from.Address,
		To:           to,
		Value:        fmt.Sprintf("%d", lamports),
		Meta:         store.Meta{Solana: &store.SolanaMeta{Operation: store.SolanaOpTransfer}},
	}
	return a.RunIntent(ctx, tx)
}

// TransferToken sends a TransferChecked between the owners' token accounts.
func (a *Adapter) TransferToken(ctx context.Context, token *store.Token, from *store.Wallet, to, amount string) (string, error) {
	recipient, err := parsePublicKey(to)
	if err != nil {
		return "", err
	}
	value, err := parseLamports(amount)
	if err != nil {
		return "", err
	}
	acct, err := a.ownerTokenAccount(ctx, token, from)
	if err != nil {
		return "", err
	}
	destination, ok, err := findTokenAccount(ctx, acct.caller, recipient, acct.mint)
	if err != nil {
		return "", err
	}
	if !ok {
		if a.ProtocolConfig().AutoCreateATAs {
			a.Logger().Warn().Str("owner", recipient.String()).Str("mint", acct.mint.String()).
				Msg("auto_create_atas is set but associated token account creation is not available")
		}
		return "", oerrors.NewNotImplementedError(chainName, "associated token account creation")
	}

	ix, err := TransferCheckedInstruction(acct.source, acct.mint, destination, acct.owner, value, acct.decimals)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.sendDirect(ctx, acct.caller, from, ix)
}

// ApproveToken delegates amount of the owner's token account to spender.
func (a *Adapter) ApproveToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender, amount string) (string, error) {
	delegate, err := parsePublicKey(spender)
	if err != nil {
		return "", err
	}
	value, err := parseLamports(amount)
	if err != nil {
		return "", err
	}
	acct, err := a.ownerTokenAccount(ctx, token, owner)
	if err != nil {
		return "", err
	}
	ix, err := ApproveCheckedInstruction(acct.source, acct.mint, delegate, acct.owner, value, acct.decimals)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.sendDirect(ctx, acct.caller, owner, ix)
}

// RevokeToken clears any delegate; spender is only validated.
func (a *Adapter) RevokeToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error) {
	if _, err := parsePublicKey(spender); err != nil {
		return "", err
	}
	acct, err := a.ownerTokenAccount(ctx, token, owner)
	if err != nil {
		return "", err
	}
	ix, err := RevokeInstruction(acct.source, acct.owner)
	if err != nil {
		return "", oerrors.NewValidationError(chainName, err.Error())
	}
	return a.sendDirect(ctx, acct.caller, owner, ix)
}

type tokenAccount struct {
	caller   rpcpool.Caller
	owner    solana.PublicKey
	mint     solana.PublicKey
	source   solana.PublicKey
	decimals uint8
}

// mintDecimals checks that the stored precision fits the u8 field of the
// checked SPL instructions.
func mintDecimals(token *store.Token) (uint8, error) {
	if token.Decimals < 0 || token.Decimals > math.MaxUint8 {
		return 0, oerrors.NewValidationErrorf(chainName, "token %d has invalid decimals %d", token.ID, token.Decimals)
	}
	return uint8(token.Decimals), nil
}

func (a *Adapter) ownerTokenAccount(ctx context.Context, token *store.Token, owner *store.Wallet) (*tokenAccount, error) {
	decimals, err := mintDecimals(token)
	if err != nil {
		return nil, err
	}
	caller, err := a.Caller(ctx, owner)
	if err != nil {
		return nil, err
	}
	ownerKey, mint, err := ownerAndMint(owner, token)
	if err != nil {
		return nil, err
	}
	source, ok, err := findTokenAccount(ctx, caller, ownerKey, mint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, oerrors.NewValidationErrorf(chainName, "wallet %s holds no account for mint %s", ownerKey, mint)
	}
	return &tokenAccount{caller: caller, owner: ownerKey, mint: mint, source: source, decimals: decimals}, nil
}

func (a *Adapter) sendDirect(ctx context.Context, caller rpcpool.Caller, wallet *store.Wallet, instructions ...solana.Instruction) (string, error) {
	blockhash, err := latestBlockhash(ctx, caller)
	if err != nil {
		return "", err
	}
	payer, err := a.signingKey(wallet)
	if err != nil {
		return "", err
	}
	defer keys.Zero(payer)

	sig, err := a.send(ctx, caller, payer.PublicKey(), blockhash, []solana.PrivateKey{payer}, instructions...)
	if err != nil {
		return "", err
	}
	a.TouchWallet(ctx, wallet)
	return sig, nil
}

func (a *Adapter) signingKey(wallet *store.Wallet) (solana.PrivateKey, error) {
	kp, err := a.KeyPair(wallet)
	if err != nil {
		return nil, err
	}
	if kp.Scheme != keys.SchemeEd25519 || len(kp.PrivateKey) != 64 {
		kp.Wipe()
		return nil, oerrors.NewValidationErrorf(chainName, "wallet %d does not hold an ed25519 key", wallet.ID)
	}
	return solana.PrivateKey(kp.PrivateKey), nil
}

func latestBlockhash(ctx context.Context, caller rpcpool.Caller) (solana.Hash, error) {
	var out contextValue[struct {
		Blockhash string `json:"blockhash"`
	}]
	if err := caller.Call(ctx, &out, "getLatestBlockhash", map[string]any{"commitment": "finalized"}); err != nil {
		return solana.Hash{}, err
	}
	hash, err := solana.HashFromBase58(out.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, oerrors.NewRPCError(chainName, "invalid blockhash in response", err)
	}
	return hash, nil
}

// send compiles, signs and broadcasts; the returned signature is the one
// the node reports.
func (a *Adapter) send(ctx context.Context, caller rpcpool.Caller, payer solana.PublicKey, blockhash solana.Hash, signers []solana.PrivateKey, instructions ...solana.Instruction) (string, error) {
	tx, err := BuildTransaction(payer, blockhash, instructions...)
	if err != nil {
		return "", oerrors.NewTransactionError(chainName, "build transaction", err)
	}
	if err := SignTransaction(tx, signers...); err != nil {
		return "", oerrors.NewTransactionError(chainName, "sign transaction", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", oerrors.NewTransactionError(chainName, "serialize transaction", err)
	}

	var sig string
	err = caller.Call(ctx, &sig, "sendTransaction",
		base64.StdEncoding.EncodeToString(raw),
		map[string]any{"encoding": "base64", "preflightCommitment": "confirmed"},
	)
	if err != nil {
		return "", err
	}
	if local := tx.Signatures[0].String(); sig != local {
		a.Logger().Warn().Str("node_signature", sig).Str("local_signature", local).Msg("node returned unexpected signature")
	}
	a.Logger().Info().Str("signature", sig).Int("instructions", len(instructions)).Msg("transaction broadcast")
	return sig, nil
}
