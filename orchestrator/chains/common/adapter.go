package common

import (
	"context"

	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Adapter is the per-protocol capability set. Operations a protocol cannot
// perform return UNSUPPORTED_OPERATION or NOT_IMPLEMENTED errors, never a
// zero value.
type Adapter interface {
	// Protocol returns the protocol this adapter serves
	Protocol() store.Protocol

	// CreateWallet generates (or derives) a key, encrypts it and persists the wallet
	CreateWallet(ctx context.Context, attrs WalletAttrs, owner *uint, chain *store.Blockchain) (*store.Wallet, error)

	// GetNativeBalance returns the wallet's native balance in base units
	GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error)

	// TransferNative sends amount base units and returns the transaction hash
	TransferNative(ctx context.Context, from *store.Wallet, to string, amount string) (string, error)

	// NormalizeAddress returns the canonical storage form of address
	NormalizeAddress(address string) (string, error)

	// ValidateAddress reports whether address is well formed for the protocol
	ValidateAddress(address string) bool

	GetTokenBalance(ctx context.Context, token *store.Token, owner *store.Wallet) (string, error)
	Allowance(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error)
	TransferToken(ctx context.Context, token *store.Token, from *store.Wallet, to, amount string) (string, error)
	ApproveToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender, amount string) (string, error)
	RevokeToken(ctx context.Context, token *store.Token, owner *store.Wallet, spender string) (string, error)
}

// HasSequence is implemented by account-sequenced protocols.
type HasSequence interface {
	GetSequence(ctx context.Context, address string) (uint64, error)
}

// ProtocolTransactionAdapter hooks a protocol into the lifecycle pipeline.
type ProtocolTransactionAdapter interface {
	// PrepareTransaction fills protocol fields (nonce, fees, staged meta)
	PrepareTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error

	// SubmitTransaction signs and broadcasts, returning the transaction hash
	SubmitTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) (string, error)

	// CheckConfirmations reports inclusion state for a submitted transaction
	CheckConfirmations(ctx context.Context, tx *store.Transaction) (*Receipt, error)
}

// IntentRunner executes a freshly built intent through prepare and submit
// and returns the submitted hash.
type IntentRunner interface {
	RunNow(ctx context.Context, tx *store.Transaction) (string, error)
}

// WalletAttrs selects how a wallet's key is produced. Address is only used
// for external wallets.
type WalletAttrs struct {
	WalletType     store.WalletType
	KeyScheme      keys.Scheme
	Seed           []byte
	DerivationPath string
	Address        string
}

// Receipt is the inclusion state of a transaction.
type Receipt struct {
	Found         bool
	BlockHeight   uint64
	CurrentHeight uint64
	Success       bool
	Reason        string

	// Final is set by protocols with deterministic finality; the
	// confirmation count is then irrelevant.
	Final bool
}

// Confirmations returns current - block + 1, or 0 when not included.
func (r *Receipt) Confirmations() uint64 {
	if r == nil || !r.Found || r.CurrentHeight < r.BlockHeight {
		return 0
	}
	return r.CurrentHeight - r.BlockHeight + 1
}
