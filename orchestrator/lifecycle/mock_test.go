package lifecycle

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	"github.com/pushchain/chain-orchestrator/orchestrator/estimator"
	"github.com/pushchain/chain-orchestrator/orchestrator/queue"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

// fakeAdapter scripts every chain interaction of the pipeline.
type fakeAdapter struct {
	*common.Base

	mu         sync.Mutex
	balance    string
	prepareErr error
	submitErr  error
	receipts   []*common.Receipt
	prepares   int
	submits    int
	networks   map[string]uint
}

// seen records the network tx was pinned to when stage ran.
func (f *fakeAdapter) seen(stage string, tx *store.Transaction) {
	if f.networks == nil {
		f.networks = map[string]uint{}
	}
	var id uint
	if tx.BlockchainID != nil {
		id = *tx.BlockchainID
	}
	f.networks[stage] = id
}

func identity(s string) (string, error) { return s, nil }

func (f *fakeAdapter) GetNativeBalance(_ context.Context, w *store.Wallet) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen("balance", &store.Transaction{BlockchainID: w.BlockchainID})
	return f.balance, nil
}

func (f *fakeAdapter) PrepareTransaction(_ context.Context, tx *store.Transaction, _ *store.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepares++
	f.seen("prepare", tx)
	if f.prepareErr != nil {
		return f.prepareErr
	}
	tx.Meta.SetExtra("staged", "yes")
	return nil
}

func (f *fakeAdapter) SubmitTransaction(_ context.Context, tx *store.Transaction, _ *store.Wallet) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.seen("submit", tx)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "0xhash", nil
}

func (f *fakeAdapter) CheckConfirmations(_ context.Context, tx *store.Transaction) (*common.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen("confirm", tx)
	if len(f.receipts) == 0 {
		return &common.Receipt{}, nil
	}
	r := f.receipts[0]
	f.receipts = f.receipts[1:]
	return r, nil
}

// hooklessAdapter has no lifecycle hooks.
type hooklessAdapter struct {
	*common.Base
}

func (hooklessAdapter) GetNativeBalance(context.Context, *store.Wallet) (string, error) {
	return "1000000", nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []TransactionEvent
}

func (r *recordingSink) Emit(_ context.Context, ev TransactionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) statuses() []store.TxStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.TxStatus, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Status
	}
	return out
}

type fixture struct {
	svc     *Service
	repo    *db.Repository
	queue   *queue.MemoryQueue
	adapter *fakeAdapter
	sink    *recordingSink
	wallet  *store.Wallet
}

// setupPipeline wires a service around fakeAdapter on EVM and
// hooklessAdapter on Cardano. Fees are a flat 21 units plus value.
func setupPipeline(t *testing.T, lc config.LifecycleConfig) *fixture {
	t.Helper()
	deps := testutils.SetupDeps(t, testutils.NewFakeRPC())

	fake := &fakeAdapter{Base: common.NewBase(store.ProtocolEVM, deps, identity, "fake"), balance: "1000000"}
	router := chains.NewRouterWith(fake, hooklessAdapter{Base: common.NewBase(store.ProtocolCardano, deps, identity, "hookless")})

	flatFee := estimator.StrategyFunc(func(_ context.Context, tx *store.Transaction) (*estimator.Estimate, error) {
		fake.mu.Lock()
		fake.seen("estimate", tx)
		fake.mu.Unlock()
		v, _ := new(big.Int).SetString(tx.Value, 10)
		return &estimator.Estimate{TotalRequired: v.Add(v, big.NewInt(21)), Unit: "wei"}, nil
	})
	est := estimator.NewRouterWith(map[store.Protocol]estimator.Strategy{
		store.ProtocolEVM:     flatFee,
		store.ProtocolCardano: flatFee,
	})

	q := queue.NewMemoryQueue()
	sink := &recordingSink{}
	svc := NewService(Config{
		Repo:      deps.Repo,
		Router:    router,
		Estimator: est,
		Queue:     q,
		Lifecycle: lc,
		Events:    sink,
		Logger:    deps.Logger,
	})

	wallet := &store.Wallet{Address: "0xwallet", Protocol: store.ProtocolEVM, WalletType: store.WalletCustodial, IsActive: true}
	require.NoError(t, deps.Repo.CreateWallet(context.Background(), wallet))

	return &fixture{svc: svc, repo: deps.Repo, queue: q, adapter: fake, sink: sink, wallet: wallet}
}

func (f *fixture) newTx(value string) *store.Transaction {
	return &store.Transaction{WalletID: f.wallet.ID, From: f.wallet.Address, To: "0xdead", Value: value}
}

// drain discards every queued job.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for {
		n, err := f.queue.Len(ctx)
		require.NoError(t, err)
		if n == 0 {
			return
		}
		_ = f.nextJob(t)
	}
}

// nextJob pops the next job, which must already be due.
func (f *fixture) nextJob(t *testing.T) *queue.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	job, err := f.queue.Dequeue(ctx)
	require.NoError(t, err)
	return job
}

func (f *fixture) reload(t *testing.T, id uint) *store.Transaction {
	t.Helper()
	tx, err := f.repo.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx
}
