package hedera

import (
	"context"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/codec"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "hedera"

var accountIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Adapter creates ed25519 wallets addressed by their public key alias and
// stages fungible token creation. Submission needs the Hedera SDK protobufs
// and is not implemented.
type Adapter struct {
	*common.Base
}

var (
	_ common.Adapter                    = (*Adapter)(nil)
	_ common.ProtocolTransactionAdapter = (*Adapter)(nil)
)

// NewAdapter creates the Hedera adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{Base: common.NewBase(store.ProtocolHedera, deps, normalizeAddress, "hedera_adapter")}
}

// normalizeAddress accepts shard.realm.num account ids and 32 byte hex
// public key aliases.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if accountIDPattern.MatchString(address) {
		return address, nil
	}
	alias := strings.ToLower(codec.Strip0x(address))
	if raw, err := hex.DecodeString(alias); err == nil && len(raw) == 32 {
		return alias, nil
	}
	return "", oerrors.NewValidationErrorf(chainName, "invalid account id or alias %q", address)
}

// PrepareTransaction validates the recipient of a transfer or stages token
// creation defaults.
func (a *Adapter) PrepareTransaction(_ context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	if tx.From == "" {
		tx.From = wallet.Address
	}
	m := tx.Meta.Hedera
	if m == nil {
		to, err := a.NormalizeAddress(tx.To)
		if err != nil {
			return err
		}
		tx.To = to
		return nil
	}

	if strings.TrimSpace(m.TokenName) == "" || strings.TrimSpace(m.TokenSymbol) == "" {
		return oerrors.NewValidationError(chainName, "token name and symbol are required")
	}
	if m.InitialSupply == "" {
		m.InitialSupply = "0"
	}
	supply, err := codec.ParseBigInt(m.InitialSupply)
	if err != nil || supply.Sign() < 0 {
		return oerrors.NewValidationErrorf(chainName, "invalid initial supply %q", m.InitialSupply)
	}
	m.InitialSupply = supply.String()
	if m.TreasuryID == "" {
		m.TreasuryID = wallet.Address
	}
	if _, err := a.NormalizeAddress(m.TreasuryID); err != nil {
		return err
	}
	return nil
}

func (a *Adapter) SubmitTransaction(context.Context, *store.Transaction, *store.Wallet) (string, error) {
	return "", oerrors.NewNotImplementedError(chainName, "transaction submission")
}

func (a *Adapter) CheckConfirmations(context.Context, *store.Transaction) (*common.Receipt, error) {
	return nil, oerrors.NewNotImplementedError(chainName, "receipt lookup")
}
