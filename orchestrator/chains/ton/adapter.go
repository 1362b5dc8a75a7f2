package ton

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

const chainName = "ton"

// Adapter stores placeholder raw-form wallets and reads balances from
// toncenter. Transfers need BOC serialization and are not implemented.
type Adapter struct {
	*common.Base

	mu      sync.Mutex
	clients map[string]*Client
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter creates the TON adapter.
func NewAdapter(deps common.Deps) *Adapter {
	return &Adapter{
		Base:    common.NewBase(store.ProtocolTON, deps, normalizeAddress, "ton_adapter"),
		clients: make(map[string]*Client),
	}
}

// normalizeAddress maps raw and user-friendly forms to lowercase raw form.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	var (
		wc  int8
		id  []byte
		err error
	)
	if strings.Contains(address, ":") {
		wc, id, err = ParseRaw(address)
	} else {
		wc, id, err = ParseFriendly(address)
	}
	if err != nil {
		return "", oerrors.NewValidationErrorf(chainName, "invalid address %q: %v", address, err)
	}
	return rawForm(wc, id), nil
}

func (a *Adapter) client(ctx context.Context, wallet *store.Wallet) (*Client, error) {
	pc := a.ProtocolConfig()
	urls := pc.RPCURLs
	chain, err := a.Chain(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if chain != nil && len(chain.RPCURLs()) > 0 {
		urls = chain.RPCURLs()
	}
	if len(urls) == 0 {
		return nil, oerrors.NewConfigError(chainName, "no toncenter url configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[urls[0]]; ok {
		return c, nil
	}
	opts := rpcpool.DefaultOptions()
	if cfg := a.Deps().Config; cfg != nil {
		opts = rpcpool.OptionsFromConfig(cfg.RPC)
	}
	c := NewClient(urls[0], pc.RPCHeaders, opts, *a.Logger())
	a.clients[urls[0]] = c
	return c, nil
}

// GetNativeBalance returns the nanoton balance.
func (a *Adapter) GetNativeBalance(ctx context.Context, wallet *store.Wallet) (string, error) {
	c, err := a.client(ctx, wallet)
	if err != nil {
		return "", err
	}
	var balance string
	if err := c.Get(ctx, &balance, "getAddressBalance", url.Values{"address": {wallet.Address}}); err != nil {
		return "", err
	}
	return balance, nil
}
