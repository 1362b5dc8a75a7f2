// Package balances keeps the last observed balance and allowance of each
// wallet and reports changes through the webhook notifier.
package balances

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/orchestrator/webhook"
)

// Change is the outcome of one refresh. A wallet never seen before starts
// from "0".
type Change struct {
	Old     string
	New     string
	Changed bool
}

// Notifier receives change notifications.
type Notifier interface {
	Notify(ctx context.Context, p webhook.Payload)
}

// Tracker refreshes balances through the protocol adapters.
type Tracker struct {
	repo     *db.Repository
	router   *chains.Router
	notifier Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewTracker creates a tracker. notifier may be nil.
func NewTracker(repo *db.Repository, router *chains.Router, notifier Notifier, logger zerolog.Logger) *Tracker {
	return &Tracker{
		repo:     repo,
		router:   router,
		notifier: notifier,
		now:      time.Now,
		logger:   logger.With().Str("component", "balance_tracker").Logger(),
	}
}

// RefreshNative reads the native balance of wallet.
func (t *Tracker) RefreshNative(ctx context.Context, wallet *store.Wallet) (*Change, error) {
	adapter, err := t.router.Adapter(wallet.Protocol)
	if err != nil {
		return nil, err
	}
	value, err := adapter.GetNativeBalance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return t.record(ctx, wallet, nil, "", value)
}

// RefreshToken reads the token balance of wallet.
func (t *Tracker) RefreshToken(ctx context.Context, wallet *store.Wallet, token *store.Token) (*Change, error) {
	adapter, err := t.router.Adapter(wallet.Protocol)
	if err != nil {
		return nil, err
	}
	value, err := adapter.GetTokenBalance(ctx, token, wallet)
	if err != nil {
		return nil, err
	}
	return t.record(ctx, wallet, token, "", value)
}

// RefreshAllowance reads what spender may move from wallet.
func (t *Tracker) RefreshAllowance(ctx context.Context, wallet *store.Wallet, token *store.Token, spender string) (*Change, error) {
	adapter, err := t.router.Adapter(wallet.Protocol)
	if err != nil {
		return nil, err
	}
	spender, err = adapter.NormalizeAddress(spender)
	if err != nil {
		return nil, err
	}
	value, err := adapter.Allowance(ctx, token, wallet, spender)
	if err != nil {
		return nil, err
	}
	return t.record(ctx, wallet, token, spender, value)
}

func (t *Tracker) record(ctx context.Context, wallet *store.Wallet, token *store.Token, spender, value string) (*Change, error) {
	var tokenID uint
	if token != nil {
		tokenID = token.ID
	}

	old := "0"
	snap, err := t.repo.GetBalanceSnapshot(ctx, wallet.ID, tokenID, spender)
	switch {
	case err == nil:
		old = snap.Value
	case !oerrors.Is(err, db.ErrNotFound):
		return nil, oerrors.NewDatabaseError(wallet.Protocol.String(), "load balance snapshot", err)
	}

	change := &Change{Old: old, New: value, Changed: old != value}
	if snap != nil && !change.Changed {
		return change, nil
	}
	if err := t.repo.SaveBalanceSnapshot(ctx, wallet.ID, tokenID, spender, value); err != nil {
		return nil, oerrors.NewDatabaseError(wallet.Protocol.String(), "save balance snapshot", err)
	}
	if !change.Changed {
		return change, nil
	}

	t.logger.Info().
		Uint("wallet_id", wallet.ID).
		Uint("token_id", tokenID).
		Str("spender", spender).
		Str("old", old).
		Str("new", value).
		Msg("balance changed")

	if t.notifier != nil {
		p := webhook.Payload{
			Wallet:    wallet.Address,
			Protocol:  wallet.Protocol.String(),
			Spender:   spender,
			Old:       old,
			New:       value,
			UpdatedAt: t.now().UTC(),
		}
		if token != nil {
			id := token.ID
			p.TokenID = &id
			p.Contract = token.Contract.Address
		}
		t.notifier.Notify(ctx, p)
	}
	return change, nil
}
