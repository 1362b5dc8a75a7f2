package bitcoin

import (
	"context"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "bitcoin"

// Adapter creates P2WPKH wallets and validates addresses for the configured
// network. Balances and transfers need a UTXO indexer and are not wired.
type Adapter struct {
	*common.Base
	params *chaincfg.Params
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter creates the Bitcoin adapter for the key engine's network.
func NewAdapter(deps common.Deps) *Adapter {
	a := &Adapter{params: deps.Keys.BitcoinNetwork()}
	a.Base = common.NewBase(store.ProtocolBitcoin, deps, a.normalizeAddress, "bitcoin_adapter")
	return a
}

// Network returns the chain parameters addresses are checked against.
func (a *Adapter) Network() *chaincfg.Params {
	return a.params
}

func (a *Adapter) normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	decoded, err := btcutil.DecodeAddress(address, a.params)
	if err != nil {
		return "", oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
	}
	if !decoded.IsForNet(a.params) {
		return "", oerrors.NewValidationErrorf(chainName, "address %q is not for %s", address, a.params.Name)
	}
	return decoded.EncodeAddress(), nil
}

func (a *Adapter) GetTokenBalance(context.Context, *store.Token, *store.Wallet) (string, error) {
	return "", oerrors.NewUnsupportedError(chainName, "getTokenBalance")
}

func (a *Adapter) TransferToken(context.Context, *store.Token, *store.Wallet, string, string) (string, error) {
	return "", oerrors.NewUnsupportedError(chainName, "transferToken")
}
