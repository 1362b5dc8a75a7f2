package bitcoin

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

func TestBitcoinAdapter(t *testing.T) {
	a := NewAdapter(testutils.SetupDeps(t, testutils.NewFakeRPC()))
	ctx := context.Background()
	assert.Equal(t, "testnet3", a.Network().Name)

	w, err := a.CreateWallet(ctx, common.WalletAttrs{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(w.Address, "tb1q"), w.Address)
	assert.True(t, a.ValidateAddress(w.Address))

	t.Run("network checks", func(t *testing.T) {
		assert.True(t, a.ValidateAddress("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"))
		assert.True(t, a.ValidateAddress("  tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx "))
		assert.False(t, a.ValidateAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"))
		assert.False(t, a.ValidateAddress("1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"))
		assert.False(t, a.ValidateAddress("tb1qinvalid"))
	})

	t.Run("unsupported operations", func(t *testing.T) {
		_, err := a.GetNativeBalance(ctx, w)
		assert.True(t, oerrors.Is(err, oerrors.ErrNotImplemented))
		_, err = a.TransferNative(ctx, w, w.Address, "1")
		assert.True(t, oerrors.Is(err, oerrors.ErrNotImplemented))
		_, err = a.GetTokenBalance(ctx, &store.Token{}, w)
		assert.True(t, oerrors.Is(err, oerrors.ErrUnsupported))
		_, err = a.TransferToken(ctx, &store.Token{}, w, w.Address, "1")
		assert.True(t, oerrors.Is(err, oerrors.ErrUnsupported))
		_, err = a.Allowance(ctx, &store.Token{}, w, w.Address)
		assert.True(t, oerrors.Is(err, oerrors.ErrUnsupported))
	})
}
