package evm

import (
	"context"
	"testing"

	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

type recordingRunner struct {
	got *store.Transaction
}

func (r *recordingRunner) RunNow(_ context.Context, tx *store.Transaction) (string, error) {
	r.got = tx
	return "0xabc", nil
}

func setupTestAdapter(t *testing.T, rpc *testutils.FakeRPC) (*Adapter, *db.Repository) {
	t.Helper()
	deps := testutils.SetupDeps(t, rpc)
	return NewAdapter(deps), deps.Repo
}
