// Package store contains the GORM models persisted by the orchestrator.
//
// Tables:
//
//	wallets            key material is stored only as a vault envelope
//	transactions       intents plus their lifecycle state
//	blockchains        static network descriptors
//	contracts          on-chain contract / program references
//	tokens             token descriptors bound to a contract
//	key_releases       append-only audit of key disclosures
//	balance_snapshots  last observed balances used for change webhooks
package store

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrExternalWalletKey is returned when an external wallet carries a key.
var ErrExternalWalletKey = errors.New("external wallets must not hold a private key")

// Wallet is an address plus, for custodial and shared wallets, encrypted
// signing material. Key is never serialized outward.
type Wallet struct {
	gorm.Model
	Address        string     `gorm:"index:idx_wallet_protocol_address,unique;not null" json:"address"`
	Protocol       Protocol   `gorm:"index:idx_wallet_protocol_address,unique;not null" json:"protocol"`
	Key            string     `gorm:"type:text" json:"-"`
	WalletType     WalletType `gorm:"not null;default:'custodial'" json:"wallet_type"`
	PublicKey      string     `json:"public_key,omitempty"`
	DerivationPath string     `json:"derivation_path,omitempty"`
	KeyScheme      string     `json:"key_scheme,omitempty"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	UserID         *uint      `gorm:"index" json:"user_id,omitempty"`
	BlockchainID   *uint      `json:"blockchain_id,omitempty"`
}

// Validate enforces the key-holding invariant.
func (w *Wallet) Validate() error {
	if w.WalletType == WalletExternal && w.Key != "" {
		return ErrExternalWalletKey
	}
	return nil
}

// BeforeSave runs Validate on every write.
func (w *Wallet) BeforeSave(*gorm.DB) error {
	return w.Validate()
}

// HasKey reports whether signing material is stored.
func (w *Wallet) HasKey() bool {
	return w.Key != ""
}

// Transaction is a chain-agnostic intent and its execution state. Numeric
// fields are decimal or 0x-hex strings.
type Transaction struct {
	gorm.Model
	WalletID      uint     `gorm:"index;not null" json:"wallet_id"`
	BlockchainID  *uint    `json:"blockchain_id,omitempty"`
	ContractID    *uint    `json:"contract_id,omitempty"`
	To            string   `json:"to"`
	From          string   `json:"from"`
	Value         string   `gorm:"not null;default:'0'" json:"value"`
	Data          string   `gorm:"type:text" json:"data,omitempty"`
	GasLimit      *string  `json:"gas_limit,omitempty"`
	Gwei          *string  `json:"gwei,omitempty"`
	FeeMax        *string  `json:"fee_max,omitempty"`
	PriorityMax   *string  `json:"priority_max,omitempty"`
	Is1559        bool     `json:"is_1559"`
	Nonce         *uint64  `json:"nonce,omitempty"`
	ChainID       *uint64  `json:"chain_id,omitempty"`
	Status        TxStatus `gorm:"index;not null;default:'pending'" json:"status"`
	TxHash        *string  `gorm:"index" json:"tx_hash,omitempty"`
	Error         *string  `gorm:"type:text" json:"error,omitempty"`
	Confirmations uint64   `json:"confirmations"`
	Meta          Meta     `gorm:"serializer:json;type:text" json:"meta"`
}

// Blockchain is a static network descriptor.
type Blockchain struct {
	gorm.Model
	Name            string   `gorm:"not null" json:"name"`
	Protocol        Protocol `gorm:"index;not null" json:"protocol"`
	ChainID         uint64   `json:"chain_id"`
	RPC             string   `gorm:"not null" json:"rpc"`
	RPCAlternates   []string `gorm:"serializer:json;type:text" json:"rpc_alternates,omitempty"`
	SupportsEIP1559 bool     `json:"supports_eip1559"`
	NativeDecimals  int32    `gorm:"not null;default:18" json:"native_decimals"`
	IsDefault       bool     `gorm:"index" json:"is_default"`
}

// RPCURLs returns the primary endpoint followed by alternates.
func (b *Blockchain) RPCURLs() []string {
	out := make([]string, 0, 1+len(b.RPCAlternates))
	if b.RPC != "" {
		out = append(out, b.RPC)
	}
	return append(out, b.RPCAlternates...)
}

// Contract references an on-chain contract or program.
type Contract struct {
	gorm.Model
	Address      string   `gorm:"index;not null" json:"address"`
	Protocol     Protocol `gorm:"not null" json:"protocol"`
	ABI          *string  `gorm:"type:text" json:"abi,omitempty"`
	Creator      string   `json:"creator,omitempty"`
	BlockchainID *uint    `json:"blockchain_id,omitempty"`
}

// Token describes a fungible or non-fungible token bound to a contract.
type Token struct {
	gorm.Model
	ContractID uint      `gorm:"index;not null" json:"contract_id"`
	Contract   Contract  `json:"contract"`
	TokenType  TokenType `gorm:"not null;default:'erc20'" json:"token_type"`
	Decimals   int32     `json:"decimals"`
	Symbol     string    `json:"symbol"`
	TokenID    *string   `json:"token_id,omitempty"`
}

// KeyRelease is an append-only audit row for a key disclosure.
type KeyRelease struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	WalletID        uint      `gorm:"index:idx_release_wallet_user;not null" json:"wallet_id"`
	UserID          uint      `gorm:"index:idx_release_wallet_user;not null" json:"user_id"`
	IP              string    `json:"ip"`
	UserAgent       string    `json:"user_agent"`
	SecurityContext string    `gorm:"type:text" json:"security_context"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// BalanceSnapshot is the last observed value of a balance or allowance.
// TokenID 0 denotes the native asset; Spender is empty for balances.
type BalanceSnapshot struct {
	gorm.Model
	WalletID uint   `gorm:"uniqueIndex:idx_snapshot_key;not null"`
	TokenID  uint   `gorm:"uniqueIndex:idx_snapshot_key"`
	Spender  string `gorm:"uniqueIndex:idx_snapshot_key"`
	Value    string `gorm:"not null"`
}
