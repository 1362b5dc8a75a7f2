package sui

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

func TestSuiAdapter(t *testing.T) {
	rpc := testutils.NewFakeRPC()
	a := NewAdapter(testutils.SetupDeps(t, rpc))
	ctx := context.Background()

	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, w.Address, 66)
	assert.True(t, a.ValidateAddress(w.Address))

	upper := "0x" + strings.ToUpper(w.Address[2:])
	norm, err := a.NormalizeAddress(upper)
	require.NoError(t, err)
	assert.Equal(t, w.Address, norm)

	assert.False(t, a.ValidateAddress(w.Address[2:]))
	assert.False(t, a.ValidateAddress("0x1234"))
	assert.False(t, a.ValidateAddress("0x"+strings.Repeat("zz", 32)))

	rpc.On("suix_getBalance", map[string]any{"coinType": NativeCoinType, "coinObjectCount": 2, "totalBalance": "1500000000"})
	bal, err := a.GetNativeBalance(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "1500000000", bal)
	call, _ := rpc.LastCall("suix_getBalance")
	assert.Equal(t, []any{w.Address, NativeCoinType}, call.Params)

	usdc := "0xa1ec7fc00a6f40db9693ad1415d0c193ad3906494428cf252621037bd7117e29::usdc::USDC"
	rpc.On("suix_getBalance", map[string]any{"coinType": usdc, "totalBalance": "42"})
	tb, err := a.GetTokenBalance(ctx, &store.Token{Contract: store.Contract{Address: usdc}}, w)
	require.NoError(t, err)
	assert.Equal(t, "42", tb)

	_, err = a.GetTokenBalance(ctx, &store.Token{}, w)
	assert.True(t, oerrors.Is(err, oerrors.ErrValidation))

	_, err = a.TransferNative(ctx, w, w.Address, "1")
	assert.True(t, oerrors.Is(err, oerrors.ErrNotImplemented))
}
