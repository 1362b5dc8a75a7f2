package svm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// PrepareTransaction validates the staged operation, generates the mint key
// for create_token and records a recent blockhash.
func (a *Adapter) PrepareTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	caller, err := a.TxCaller(ctx, tx, wallet)
	if err != nil {
		return err
	}
	if tx.From == "" {
		tx.From = wallet.Address
	}
	if tx.Meta.Solana == nil {
		tx.Meta.Solana = &store.SolanaMeta{}
	}
	m := tx.Meta.Solana

	switch m.Operation {
	case "", store.SolanaOpTransfer:
		m.Operation = store.SolanaOpTransfer
		if tx.To, err = a.NormalizeAddress(tx.To); err != nil {
			return err
		}
		if _, err := parseLamports(valueOrZero(tx.Value)); err != nil {
			return err
		}
	case store.SolanaOpCreateToken:
		if err := a.stageMint(m); err != nil {
			return err
		}
	default:
		return oerrors.NewValidationErrorf(chainName, "unknown operation %q", m.Operation)
	}

	blockhash, err := latestBlockhash(ctx, caller)
	if err != nil {
		return err
	}
	m.RecentBlockhash = blockhash.String()
	return nil
}

// stageMint generates the mint keypair once; re-preparing keeps it.
func (a *Adapter) stageMint(m *store.SolanaMeta) error {
	if m.MintPubkey != "" && m.MintSecret != "" {
		return nil
	}
	if m.InitialSupply != "" {
		if _, err := parseLamports(m.InitialSupply); err != nil {
			return err
		}
		if m.Destination == "" {
			return oerrors.NewValidationError(chainName, "initial supply requires a destination token account")
		}
	}
	kp, err := a.Deps().Keys.GenerateWithScheme(store.ProtocolSolana, keys.SchemeEd25519)
	if err != nil {
		return err
	}
	defer kp.Wipe()

	secret, err := a.Deps().Vault.EncryptKey(kp.PrivateKey)
	if err != nil {
		return oerrors.NewInternalError(chainName, "encrypt mint key", err)
	}
	m.MintPubkey = solana.PublicKeyFromBytes(kp.PublicKey).String()
	m.MintSecret = secret
	return nil
}

// SubmitTransaction builds the staged message, signs it and sends it.
func (a *Adapter) SubmitTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) (string, error) {
	m := tx.Meta.Solana
	if m == nil || m.Operation == "" {
		return "", oerrors.NewValidationError(chainName, "transaction is not prepared")
	}
	caller, err := a.TxCaller(ctx, tx, wallet)
	if err != nil {
		return "", err
	}

	blockhash, err := stagedBlockhash(ctx, caller, m.RecentBlockhash)
	if err != nil {
		return "", err
	}
	payer, err := a.signingKey(wallet)
	if err != nil {
		return "", err
	}
	defer keys.Zero(payer)

	var (
		instructions []solana.Instruction
		signers      = []solana.PrivateKey{payer}
	)
	switch m.Operation {
	case store.SolanaOpTransfer:
		to, err := parsePublicKey(tx.To)
		if err != nil {
			return "", err
		}
		lamports, err := parseLamports(valueOrZero(tx.Value))
		if err != nil {
			return "", err
		}
		instructions = append(instructions, TransferInstruction(payer.PublicKey(), to, lamports))

	case store.SolanaOpCreateToken:
		mintKey, err := a.mintKey(m)
		if err != nil {
			return "", err
		}
		defer keys.Zero(mintKey)
		signers = append(signers, mintKey)

		instructions, err = a.createTokenInstructions(ctx, caller, payer.PublicKey(), mintKey.PublicKey(), m)
		if err != nil {
			return "", err
		}

	default:
		return "", oerrors.NewValidationErrorf(chainName, "unknown operation %q", m.Operation)
	}

	sig, err := a.send(ctx, caller, payer.PublicKey(), blockhash, signers, instructions...)
	if err != nil {
		return "", err
	}
	a.TouchWallet(ctx, wallet)
	return sig, nil
}

func (a *Adapter) mintKey(m *store.SolanaMeta) (solana.PrivateKey, error) {
	if m.MintSecret == "" {
		return nil, oerrors.NewValidationError(chainName, "mint key is not staged")
	}
	raw, err := a.Deps().Vault.DecryptKey(m.MintSecret)
	if err != nil {
		return nil, oerrors.NewInternalError(chainName, "decrypt mint key", err)
	}
	key := solana.PrivateKey(raw)
	if key.PublicKey().String() != m.MintPubkey {
		keys.Zero(raw)
		return nil, oerrors.NewValidationError(chainName, "staged mint key does not match mint pubkey")
	}
	return key, nil
}

// createTokenInstructions is CreateAccount + InitializeMint2 and, with an
// initial supply, MintToChecked into the staged destination account.
func (a *Adapter) createTokenInstructions(ctx context.Context, caller rpcpool.Caller, payer, mint solana.PublicKey, m *store.SolanaMeta) ([]solana.Instruction, error) {
	var rent uint64
	if err := caller.Call(ctx, &rent, "getMinimumBalanceForRentExemption", MintAccountSize); err != nil {
		return nil, err
	}

	initMint, err := InitializeMint2Instruction(mint, payer, m.Decimals)
	if err != nil {
		return nil, oerrors.NewValidationError(chainName, err.Error())
	}
	out := []solana.Instruction{CreateMintAccountInstruction(payer, mint, rent), initMint}

	if m.InitialSupply != "" && m.Destination != "" {
		supply, err := parseLamports(m.InitialSupply)
		if err != nil {
			return nil, err
		}
		dest, err := parsePublicKey(m.Destination)
		if err != nil {
			return nil, err
		}
		mintTo, err := MintToCheckedInstruction(mint, dest, payer, supply, m.Decimals)
		if err != nil {
			return nil, oerrors.NewValidationError(chainName, err.Error())
		}
		out = append(out, mintTo)
	}
	return out, nil
}

func stagedBlockhash(ctx context.Context, caller rpcpool.Caller, staged string) (solana.Hash, error) {
	if staged == "" {
		return latestBlockhash(ctx, caller)
	}
	hash, err := solana.HashFromBase58(staged)
	if err != nil {
		return solana.Hash{}, oerrors.NewValidationErrorf(chainName, "invalid staged blockhash: %v", err)
	}
	return hash, nil
}

type signatureStatus struct {
	Slot               uint64  `json:"slot"`
	Confirmations      *uint64 `json:"confirmations"`
	Err                any     `json:"err"`
	ConfirmationStatus string  `json:"confirmationStatus"`
}

// CheckConfirmations maps getSignatureStatuses and getSlot to a receipt.
func (a *Adapter) CheckConfirmations(ctx context.Context, tx *store.Transaction) (*common.Receipt, error) {
	if tx.TxHash == nil {
		return nil, oerrors.NewValidationError(chainName, "transaction has no signature")
	}
	caller, err := a.TxCaller(ctx, tx, nil)
	if err != nil {
		return nil, err
	}

	var out contextValue[[]*signatureStatus]
	err = caller.Call(ctx, &out, "getSignatureStatuses",
		[]string{*tx.TxHash},
		map[string]any{"searchTransactionHistory": true},
	)
	if err != nil {
		return nil, err
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return &common.Receipt{Found: false}, nil
	}
	status := out.Value[0]

	var slot uint64
	if err := caller.Call(ctx, &slot, "getSlot", map[string]any{"commitment": "confirmed"}); err != nil {
		return nil, err
	}

	r := &common.Receipt{
		Found:         true,
		BlockHeight:   status.Slot,
		CurrentHeight: slot,
		Success:       status.Err == nil,
	}
	if status.Err != nil {
		r.Reason = fmt.Sprintf("%v", status.Err)
	}
	return r, nil
}

func valueOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
