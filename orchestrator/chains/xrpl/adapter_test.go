package xrpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

const genesisAccount = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

// setupTestAdapter also returns a freshly created account to act as an
// issuer or recipient.
func setupTestAdapter(t *testing.T) (*Adapter, *testutils.FakeRPC, string) {
	t.Helper()
	rpc := testutils.NewFakeRPC()
	a := NewAdapter(testutils.SetupDeps(t, rpc))
	issuer, err := a.CreateWallet(context.Background(), common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)
	return a, rpc, issuer.Address
}

func TestAddresses(t *testing.T) {
	a, _, issuerAccount := setupTestAdapter(t)
	ctx := context.Background()

	assert.True(t, a.ValidateAddress(genesisAccount))
	assert.True(t, a.ValidateAddress(issuerAccount))
	assert.False(t, a.ValidateAddress("rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTi"))
	assert.False(t, a.ValidateAddress("0x1234"))

	for _, scheme := range []keys.Scheme{keys.SchemeSecp256k1, keys.SchemeEd25519} {
		w, err := a.CreateWallet(ctx, common.WalletAttrs{KeyScheme: scheme}, nil, nil)
		require.NoError(t, err)
		assert.True(t, a.ValidateAddress(w.Address), w.Address)
		assert.Equal(t, string(scheme), w.KeyScheme)
	}
}

func TestBalancesAndSequence(t *testing.T) {
	a, rpc, issuerAccount := setupTestAdapter(t)
	ctx := context.Background()
	w := &store.Wallet{Address: genesisAccount, Protocol: store.ProtocolXRPL}

	rpc.On("account_info", map[string]any{
		"status":       "success",
		"account_data": map[string]any{"Balance": "25000000", "Sequence": 7},
	})
	bal, err := a.GetNativeBalance(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "25000000", bal)

	seq, err := a.GetSequence(ctx, genesisAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq)

	rpc.On("account_info", map[string]any{"status": "error", "error": "actNotFound", "error_message": "Account not found."})
	bal, err = a.GetNativeBalance(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "0", bal)

	_, err = a.GetSequence(ctx, genesisAccount)
	assert.True(t, oerrors.Is(err, oerrors.ErrRPC))

	rpc.On("account_lines", map[string]any{"lines": []any{
		map[string]any{"account": issuerAccount, "balance": "10.5", "currency": "USD"},
		map[string]any{"account": issuerAccount, "balance": "3", "currency": "EUR"},
	}})
	token := &store.Token{Contract: store.Contract{Address: issuerAccount}, Symbol: "EUR"}
	tb, err := a.GetTokenBalance(ctx, token, w)
	require.NoError(t, err)
	assert.Equal(t, "3", tb)

	token.Symbol = "JPY"
	tb, err = a.GetTokenBalance(ctx, token, w)
	require.NoError(t, err)
	assert.Equal(t, "0", tb)
}

func TestPrepareStagesFields(t *testing.T) {
	a, rpc, issuerAccount := setupTestAdapter(t)
	ctx := context.Background()
	w := &store.Wallet{Address: genesisAccount, Protocol: store.ProtocolXRPL, Key: "v1:x"}

	rpc.On("account_info", map[string]any{"account_data": map[string]any{"Balance": "1", "Sequence": 12}})
	rpc.On("fee", map[string]any{"drops": map[string]any{"open_ledger_fee": "15"}})
	rpc.On("ledger_current", map[string]any{"ledger_current_index": 1000})

	tx := &store.Transaction{To: issuerAccount, Value: "1000000"}
	require.NoError(t, a.PrepareTransaction(ctx, tx, w))
	require.NotNil(t, tx.Meta.XRPL)
	assert.Equal(t, uint32(12), tx.Meta.XRPL.Sequence)
	assert.Equal(t, "15", tx.Meta.XRPL.Fee)
	assert.Equal(t, uint32(1020), tx.Meta.XRPL.LastLedgerSequence)

	rpc.On("fee", oerrors.NewNetworkError("xrpl", "connection refused", nil))
	tx = &store.Transaction{To: issuerAccount, Value: "1"}
	require.NoError(t, a.PrepareTransaction(ctx, tx, w))
	assert.Equal(t, DefaultFeeDrops, tx.Meta.XRPL.Fee)

	_, err := a.SubmitTransaction(ctx, tx, w)
	assert.True(t, oerrors.Is(err, oerrors.ErrNotImplemented))
}

func TestCheckConfirmations(t *testing.T) {
	a, rpc, _ := setupTestAdapter(t)
	ctx := context.Background()
	hash := "E08D6E9754025BA2534A78707605E0601F03ACE063687A0CA1BDDACFCD1698C7"
	tx := &store.Transaction{TxHash: &hash}

	rpc.On("tx", map[string]any{"status": "error", "error": "txnNotFound"})
	r, err := a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.False(t, r.Found)

	rpc.On("tx", map[string]any{"validated": false, "ledger_index": 10})
	r, err = a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.False(t, r.Found)

	rpc.On("tx", map[string]any{"validated": true, "ledger_index": 10, "meta": map[string]any{"TransactionResult": "tesSUCCESS"}})
	r, err = a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.True(t, r.Success)
	assert.True(t, r.Final)

	rpc.On("tx", map[string]any{"validated": true, "ledger_index": 10, "meta": map[string]any{"TransactionResult": "tecUNFUNDED_PAYMENT"}})
	r, err = a.CheckConfirmations(ctx, tx)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "tecUNFUNDED_PAYMENT", r.Reason)
}
