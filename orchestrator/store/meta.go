package store

// Meta is the protocol staging area of a Transaction. Each protocol owns one
// typed section; Extra keeps forward-compatible keys that have no typed home
// yet.
type Meta struct {
	EVM    *EVMMeta       `json:"evm,omitempty"`
	Solana *SolanaMeta    `json:"solana,omitempty"`
	XRPL   *XRPLMeta      `json:"xrpl,omitempty"`
	Hedera *HederaMeta    `json:"hedera,omitempty"`
	Cost   *CostMeta      `json:"cost,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// EVMMeta records how fees were resolved.
type EVMMeta struct {
	GasEstimate  string   `json:"gas_estimate,omitempty"`
	FeeWarnings  []string `json:"fee_warnings,omitempty"`
	TokenAddress string   `json:"token_address,omitempty"`
}

// Solana operations understood by the pipeline.
const (
	SolanaOpTransfer    = "transfer"
	SolanaOpCreateToken = "create_token"
)

// SolanaMeta stages a Solana message between prepare and submit.
type SolanaMeta struct {
	Operation       string `json:"operation,omitempty"`
	MintPubkey      string `json:"mint_pubkey,omitempty"`
	MintSecret      string `json:"mint_secret,omitempty"` // vault envelope, never plaintext
	RecentBlockhash string `json:"recent_blockhash,omitempty"`
	Decimals        uint8  `json:"decimals,omitempty"`
	Destination     string `json:"destination,omitempty"`
	InitialSupply   string `json:"initial_supply,omitempty"`
}

// XRPLMeta keeps the ledger's casing for staged fields.
type XRPLMeta struct {
	Sequence           uint32 `json:"Sequence,omitempty"`
	Fee                string `json:"Fee,omitempty"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence,omitempty"`
}

// HederaMeta stages fungible token creation.
type HederaMeta struct {
	TokenName     string `json:"token_name,omitempty"`
	TokenSymbol   string `json:"token_symbol,omitempty"`
	Decimals      uint32 `json:"decimals,omitempty"`
	InitialSupply string `json:"initial_supply,omitempty"`
	TreasuryID    string `json:"treasury_id,omitempty"`
}

// CostMeta is the estimator's output, stored for audit.
type CostMeta struct {
	TotalRequired string            `json:"total_required"`
	Unit          string            `json:"unit"`
	Details       map[string]string `json:"details,omitempty"`
}

// SetExtra writes an untyped staging key.
func (m *Meta) SetExtra(key string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = value
}

// ExtraString reads an untyped staging key as a string.
func (m *Meta) ExtraString(key string) (string, bool) {
	if m.Extra == nil {
		return "", false
	}
	s, ok := m.Extra[key].(string)
	return s, ok
}
