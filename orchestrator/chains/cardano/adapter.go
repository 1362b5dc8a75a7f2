package cardano

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "cardano"

// Adapter creates placeholder wallets and validates Shelley (bech32) and
// Byron (Base58) addresses. Everything else is not implemented.
type Adapter struct {
	*common.Base
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter creates the Cardano adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{Base: common.NewBase(store.ProtocolCardano, deps, normalizeAddress, "cardano_adapter")}
}

func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	lower := strings.ToLower(address)
	if strings.HasPrefix(lower, "addr1") || strings.HasPrefix(lower, "addr_test1") {
		hrp, data, err := bech32.DecodeNoLimit(address)
		if err != nil {
			return "", oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
		}
		if (hrp != "addr" && hrp != "addr_test") || len(data) == 0 {
			return "", oerrors.NewValidationErrorf(chainName, "invalid address %q", address)
		}
		return lower, nil
	}
	raw, err := codec.Base58Decode(address)
	if err != nil || len(raw) == 0 {
		return "", oerrors.NewValidationErrorf(chainName, "invalid address %q", address)
	}
	return address, nil
}
