package testutils

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// SetupDeps opens a migrated in-memory database and returns adapter
// dependencies whose RPC calls all go to caller.
func SetupDeps(t *testing.T, caller rpcpool.Caller) common.Deps {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	vault, err := keys.NewVault(TestPassphrase)
	require.NoError(t, err)
	engine, err := keys.NewEngine("testnet")
	require.NoError(t, err)

	cfg, err := config.LoadDefaultConfig()
	require.NoError(t, err)

	return common.Deps{
		Repo:   db.NewRepository(database.Client(), zerolog.Nop()),
		Vault:  vault,
		Keys:   engine,
		RPC:    rpcpool.StaticResolver{Caller: caller},
		Config: cfg,
		Logger: zerolog.Nop(),
	}
}

// CreateDefaultChain registers the default network of a protocol.
func CreateDefaultChain(t *testing.T, repo *db.Repository, p store.Protocol, chainID uint64, eip1559 bool) *store.Blockchain {
	t.Helper()
	chain := &store.Blockchain{
		Name:            p.String() + "-test",
		Protocol:        p,
		ChainID:         chainID,
		RPC:             "http://127.0.0.1:0",
		SupportsEIP1559: eip1559,
		IsDefault:       true,
	}
	require.NoError(t, repo.CreateBlockchain(context.Background(), chain))
	return chain
}

// CreateToken registers a contract and a token bound to it.
func CreateToken(t *testing.T, repo *db.Repository, p store.Protocol, address string, decimals int32) *store.Token {
	t.Helper()
	ctx := context.Background()
	contract := &store.Contract{Address: address, Protocol: p}
	require.NoError(t, repo.CreateContract(ctx, contract))

	token := &store.Token{ContractID: contract.ID, TokenType: store.TokenERC20, Decimals: decimals, Symbol: "TST"}
	require.NoError(t, repo.CreateToken(ctx, token))
	got, err := repo.GetToken(ctx, token.ID)
	require.NoError(t, err)
	return got
}
