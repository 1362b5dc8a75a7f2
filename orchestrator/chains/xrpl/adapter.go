package xrpl

import (
	"context"
	"strconv"
	"strings"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const (
	chainName = "xrpl"

	// DefaultFeeDrops is used when the fee method is unavailable.
	DefaultFeeDrops = "12"

	// LedgerWindow is how many ledgers a prepared transaction stays valid.
	LedgerWindow = 20

	accountIDLen = 20
)

// Adapter reads XRPL accounts and stages transactions. Submission needs the
// XRPL binary codec and is not implemented.
type Adapter struct {
	*common.Base
}

var (
	_ common.Adapter                    = (*Adapter)(nil)
	_ common.HasSequence                = (*Adapter)(nil)
	_ common.ProtocolTransactionAdapter = (*Adapter)(nil)
)

// NewAdapter creates the XRPL adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{Base: common.NewBase(store.ProtocolXRPL, deps, normalizeAddress, "xrpl_adapter")}
}

// normalizeAddress checks the classic r-address checksum and payload size.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "r") {
		return "", oerrors.NewValidationErrorf(chainName, "address %q must start with r", address)
	}
	version, payload, err := codec.Base58CheckDecode(address, codec.XRPLAlphabet)
	if err != nil {
		return "", oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
	}
	if version != 0 || len(payload) != accountIDLen {
		return "", oerrors.NewValidationErrorf(chainName, "address %q is not an account id", address)
	}
	return address, nil
}

// result carries rippled's in-band error fields.
type result struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (r result) err(method string) error {
	if r.Error == "" {
		return nil
	}
	msg := r.ErrorMessage
	if msg == "" {
		msg = r.Error
	}
	return oerrors.NewRPCError(chainName, method+": "+msg, nil).WithContext("error", r.Error)
}

type accountInfo struct {
	result
	AccountData struct {
		Balance  string `json:"Balance"`
		Sequence uint32 `json:"Sequence"`
	} `json:"account_data"`
}

func (a *Adapter) accountInfo(ctx context.Context, caller rpcpool.Caller, address string) (*accountInfo, error) {
	var out accountInfo
	params := map[string]any{"account": address, "ledger_index": "validated"}
	if err := caller.Call(ctx, &out, "account_info", params); err != nil {
		return nil, err
	}
	if err := out.err("account_info"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNativeBalance returns the drop balance; unfunded accounts hold zero.
func (a *Adapter) GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error) {
	caller, err := a.Caller(ctx, wallet)
	if err != nil {
		return "", err
	}
	info, err := a.accountInfo(ctx, caller, wallet.Address)
	if err != nil {
		if isNotFound(err, "actNotFound") {
			return "0", nil
		}
		return "", err
	}
	return info.AccountData.Balance, nil
}

// GetSequence returns the account's next sequence number.
func (a *Adapter) GetSequence(ctx context.Context, address string) (uint64, error) {
	caller, err := a.Deps().RPC.Resolve(ctx, store.ProtocolXRPL, nil)
	if err != nil {
		return 0, err
	}
	info, err := a.accountInfo(ctx, caller, address)
	if err != nil {
		return 0, err
	}
	return uint64(info.AccountData.Sequence), nil
}

// GetTokenBalance sums trust line balances with the issuer stored as the
// token's contract address, filtered by currency when Symbol is set.
func (a *Adapter) GetTokenBalance(ctx context.Context, token *store.Token, owner *store.Wallet) (string, error) {
	issuer, err := normalizeAddress(token.Contract.Address)
	if err != nil {
		return "", err
	}
	caller, err := a.Caller(ctx, owner)
	if err != nil {
		return "", err
	}

	var out struct {
		result
		Lines []struct {
			Account  string `json:"account"`
			Balance  string `json:"balance"`
			Currency string `json:"currency"`
		} `json:"lines"`
	}
	params := map[string]any{"account": owner.Address, "peer": issuer, "ledger_index": "validated"}
	if err := caller.Call(ctx, &out, "account_lines", params); err != nil {
		return "", err
	}
	if err := out.err("account_lines"); err != nil {
		if isNotFound(err, "actNotFound") {
			return "0", nil
		}
		return "", err
	}
	for _, line := range out.Lines {
		if line.Account == issuer && (token.Symbol == "" || strings.EqualFold(line.Currency, token.Symbol)) {
			return line.Balance, nil
		}
	}
	return "0", nil
}

func isNotFound(err error, code string) bool {
	var chainErr *oerrors.ChainError
	if !oerrors.As(err, &chainErr) {
		return false
	}
	return chainErr.Context["error"] == code
}

// PrepareTransaction stages Sequence, Fee and LastLedgerSequence.
func (a *Adapter) PrepareTransaction(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	caller, err := a.TxCaller(ctx, tx, wallet)
	if err != nil {
		return err
	}
	if tx.From == "" {
		tx.From = wallet.Address
	}
	if tx.To, err = a.NormalizeAddress(tx.To); err != nil {
		return err
	}
	if tx.Meta.XRPL == nil {
		tx.Meta.XRPL = &store.XRPLMeta{}
	}
	m := tx.Meta.XRPL

	if m.Sequence == 0 {
		info, err := a.accountInfo(ctx, caller, tx.From)
		if err != nil {
			return err
		}
		m.Sequence = info.AccountData.Sequence
	}
	if m.Fee == "" {
		m.Fee = a.openLedgerFee(ctx, caller)
	}
	if m.LastLedgerSequence == 0 {
		var out struct {
			result
			LedgerCurrentIndex uint32 `json:"ledger_current_index"`
		}
		if err := caller.Call(ctx, &out, "ledger_current", map[string]any{}); err != nil {
			return err
		}
		if err := out.err("ledger_current"); err != nil {
			return err
		}
		m.LastLedgerSequence = out.LedgerCurrentIndex + LedgerWindow
	}
	return nil
}

func (a *Adapter) openLedgerFee(ctx context.Context, caller rpcpool.Caller) string {
	var out struct {
		result
		Drops struct {
			OpenLedgerFee string `json:"open_ledger_fee"`
		} `json:"drops"`
	}
	if err := caller.Call(ctx, &out, "fee", map[string]any{}); err != nil || out.Error != "" {
		a.Logger().Warn().Err(err).Msg("fee lookup failed, using default")
		return DefaultFeeDrops
	}
	if _, err := strconv.ParseUint(out.Drops.OpenLedgerFee, 10, 64); err != nil {
		return DefaultFeeDrops
	}
	return out.Drops.OpenLedgerFee
}

// SubmitTransaction is not available without the binary codec.
func (a *Adapter) SubmitTransaction(context.Context, *store.Transaction, *store.Wallet) (string, error) {
	return "", oerrors.NewNotImplementedError(chainName, "transaction serialization")
}

// CheckConfirmations looks the hash up with the tx method. Validated
// transactions are final.
func (a *Adapter) CheckConfirmations(ctx context.Context, tx *store.Transaction) (*common.Receipt, error) {
	if tx.TxHash == nil {
		return nil, oerrors.NewValidationError(chainName, "transaction has no hash")
	}
	caller, err := a.TxCaller(ctx, tx, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		result
		Validated   bool   `json:"validated"`
		LedgerIndex uint64 `json:"ledger_index"`
		Meta        *struct {
			TransactionResult string `json:"TransactionResult"`
		} `json:"meta"`
	}
	if err := caller.Call(ctx, &out, "tx", map[string]any{"transaction": *tx.TxHash}); err != nil {
		return nil, err
	}
	if err := out.err("tx"); err != nil {
		if isNotFound(err, "txnNotFound") {
			return &common.Receipt{Found: false}, nil
		}
		return nil, err
	}
	if !out.Validated {
		return &common.Receipt{Found: false}, nil
	}

	r := &common.Receipt{
		Found:         true,
		BlockHeight:   out.LedgerIndex,
		CurrentHeight: out.LedgerIndex,
		Success:       out.Meta != nil && out.Meta.TransactionResult == "tesSUCCESS",
		Final:         true,
	}
	if !r.Success && out.Meta != nil {
		r.Reason = out.Meta.TransactionResult
	}
	return r, nil
}
