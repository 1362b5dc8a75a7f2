package sui

import (
	"context"
	"strings"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const (
	chainName = "sui"

	// NativeCoinType is the SUI coin type.
	NativeCoinType = "0x2::sui::SUI"

	addressHexLen = 64
)

// Adapter reads Sui balances; transfers need BCS transaction building and
// are not implemented.
type Adapter struct {
	*common.Base
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter creates the Sui adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{Base: common.NewBase(store.ProtocolSui, deps, normalizeAddress, "sui_adapter")}
}

// normalizeAddress returns the lowercase 0x + 64 hex form.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !codec.Has0x(address) {
		return "", oerrors.NewValidationErrorf(chainName, "address %q must be 0x-prefixed", address)
	}
	body := strings.ToLower(address[2:])
	if len(body) != addressHexLen {
		return "", oerrors.NewValidationErrorf(chainName, "address %q must have %d hex digits", address, addressHexLen)
	}
	if _, err := codec.HexToBytes(body); err != nil {
		return "", oerrors.NewValidationErrorf(chainName, "address %q is not hex", address)
	}
	return "0x" + body, nil
}

type balanceResult struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

func (a *Adapter) balance(ctx context.Context, wallet *store.Wallet, coinType string) (string, error) {
	caller, err := a.Caller(ctx, wallet)
	if err != nil {
		return "", err
	}
	var out balanceResult
	if err := caller.Call(ctx, &out, "suix_getBalance", wallet.Address, coinType); err != nil {
		return "", err
	}
	if out.TotalBalance == "" {
		return "0", nil
	}
	return out.TotalBalance, nil
}

// GetNativeBalance returns the MIST balance.
func (a *Adapter) GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error) {
	return a.balance(ctx, wallet, NativeCoinType)
}

// GetTokenBalance returns the balance of the coin type stored as the
// token's contract address.
func (a *Adapter) GetTokenBalance(ctx context.Context, token *store.Token, owner *store.Wallet) (string, error) {
	coinType := strings.TrimSpace(token.Contract.Address)
	if coinType == "" {
		return "", oerrors.NewValidationError(chainName, "token has no coin type")
	}
	return a.balance(ctx, owner, coinType)
}
