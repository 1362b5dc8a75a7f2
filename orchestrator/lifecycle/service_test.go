package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/queue"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/testutils"
)

const testTimeout = 2 * time.Second

func TestPipelineToConfirmed(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{ConfirmationsRequired: 2})
	ctx := context.Background()

	tx := f.newTx("1000")
	require.NoError(t, f.svc.Create(ctx, tx))
	assert.Equal(t, store.StatusPending, tx.Status)

	job := f.nextJob(t)
	assert.Equal(t, queue.JobPrepare, job.Type)
	require.NoError(t, f.svc.Prepare(ctx, f.reload(t, job.TransactionID)))

	stored := f.reload(t, tx.ID)
	assert.Equal(t, store.StatusPrepared, stored.Status)
	require.NotNil(t, stored.Meta.Cost)
	assert.Equal(t, "1021", stored.Meta.Cost.TotalRequired)
	staged, _ := stored.Meta.ExtraString("staged")
	assert.Equal(t, "yes", staged)

	job = f.nextJob(t)
	assert.Equal(t, queue.JobSubmit, job.Type)
	hash, err := f.svc.Submit(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)

	job = f.nextJob(t)
	assert.Equal(t, queue.JobConfirm, job.Type)
	assert.Equal(t, 1, job.Attempt)

	f.adapter.receipts = []*common.Receipt{
		{Found: true, Success: true, BlockHeight: 10, CurrentHeight: 10},
		{Found: true, Success: true, BlockHeight: 10, CurrentHeight: 11},
	}
	stored = f.reload(t, tx.ID)
	require.NoError(t, f.svc.Confirm(ctx, stored, job.Attempt))
	stored = f.reload(t, tx.ID)
	assert.Equal(t, store.StatusSubmitted, stored.Status)
	assert.Equal(t, uint64(1), stored.Confirmations)
	n, _ := f.queue.Len(ctx)
	assert.Equal(t, int64(1), n, "next poll scheduled")

	require.NoError(t, f.svc.Confirm(ctx, stored, job.Attempt+1))
	stored = f.reload(t, tx.ID)
	assert.Equal(t, store.StatusConfirmed, stored.Status)
	assert.Equal(t, uint64(2), stored.Confirmations)
	require.NotNil(t, stored.TxHash)
	assert.Equal(t, "0xhash", *stored.TxHash)

	assert.Equal(t, []store.TxStatus{
		store.StatusPending,
		store.StatusPreparing,
		store.StatusPrepared,
		store.StatusSubmitted,
		store.StatusConfirmed,
	}, f.sink.statuses())
}

func TestInsufficientFunds(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{})
	f.adapter.balance = "1020"
	ctx := context.Background()

	tx := f.newTx("1000")
	require.NoError(t, f.svc.Create(ctx, tx))
	_ = f.nextJob(t)

	err := f.svc.Prepare(ctx, tx)
	assert.Equal(t, oerrors.ErrCodeInsufficientFunds, oerrors.CodeOf(err))

	stored := f.reload(t, tx.ID)
	assert.Equal(t, store.StatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, ReasonInsufficientFunds, *stored.Error)
	n, _ := f.queue.Len(ctx)
	assert.Zero(t, n)
}

func TestDryRunSkipsBalanceCheck(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{DryRun: true})
	f.adapter.balance = "0"
	ctx := context.Background()

	tx := f.newTx("1000")
	require.NoError(t, f.svc.Create(ctx, tx))
	require.NoError(t, f.svc.Prepare(ctx, tx))
	assert.Equal(t, store.StatusPrepared, f.reload(t, tx.ID).Status)
}

func TestStageErrorsFailTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("prepare hook", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{})
		f.adapter.prepareErr = oerrors.NewValidationError("evm", "bad recipient")
		tx := f.newTx("1")
		require.NoError(t, f.svc.Create(ctx, tx))

		err := f.svc.Prepare(ctx, tx)
		assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
		stored := f.reload(t, tx.ID)
		assert.Equal(t, store.StatusFailed, stored.Status)
		assert.Contains(t, *stored.Error, "bad recipient")
	})

	t.Run("submit", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{})
		f.adapter.submitErr = errors.New("nonce too low")
		tx := f.newTx("1")
		require.NoError(t, f.svc.Create(ctx, tx))
		require.NoError(t, f.svc.Prepare(ctx, tx))

		_, err := f.svc.Submit(ctx, tx)
		require.Error(t, err)
		stored := f.reload(t, tx.ID)
		assert.Equal(t, store.StatusFailed, stored.Status)
		assert.Equal(t, "nonce too low", *stored.Error)
		assert.Nil(t, stored.TxHash)
	})

	t.Run("protocol without hooks", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{})
		w := &store.Wallet{Address: "addr_test1", Protocol: store.ProtocolCardano, WalletType: store.WalletExternal}
		require.NoError(t, f.repo.CreateWallet(ctx, w))
		tx := &store.Transaction{WalletID: w.ID, To: "addr_test2", Value: "5"}
		require.NoError(t, f.svc.Create(ctx, tx))
		require.NoError(t, f.svc.Prepare(ctx, tx))
		assert.Equal(t, store.StatusPrepared, tx.Status)

		_, err := f.svc.Submit(ctx, tx)
		assert.True(t, oerrors.Is(err, oerrors.ErrNotImplemented))
		assert.Equal(t, store.StatusFailed, f.reload(t, tx.ID).Status)
	})
}

func submitted(t *testing.T, f *fixture) *store.Transaction {
	t.Helper()
	ctx := context.Background()
	tx := f.newTx("1")
	require.NoError(t, f.svc.Create(ctx, tx))
	require.NoError(t, f.svc.Prepare(ctx, tx))
	_, err := f.svc.Submit(ctx, tx)
	require.NoError(t, err)
	f.drain(t)
	return f.reload(t, tx.ID)
}

func TestConfirmOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("reverted", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{})
		tx := submitted(t, f)
		f.adapter.receipts = []*common.Receipt{{Found: true, Success: false, BlockHeight: 1, CurrentHeight: 9, Reason: "execution reverted"}}
		require.NoError(t, f.svc.Confirm(ctx, tx, 1))
		stored := f.reload(t, tx.ID)
		assert.Equal(t, store.StatusFailed, stored.Status)
		assert.Equal(t, "execution reverted", *stored.Error)
	})

	t.Run("final receipt", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{ConfirmationsRequired: 6})
		tx := submitted(t, f)
		f.adapter.receipts = []*common.Receipt{{Found: true, Success: true, Final: true, BlockHeight: 5, CurrentHeight: 5}}
		require.NoError(t, f.svc.Confirm(ctx, tx, 1))
		assert.Equal(t, store.StatusConfirmed, f.reload(t, tx.ID).Status)
	})

	t.Run("polling cap", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{ConfirmationsMaxAttempts: 2})
		tx := submitted(t, f)

		require.NoError(t, f.svc.Confirm(ctx, tx, 1))
		assert.Equal(t, store.StatusSubmitted, f.reload(t, tx.ID).Status)
		n, _ := f.queue.Len(ctx)
		assert.Equal(t, int64(1), n)

		require.NoError(t, f.svc.Confirm(ctx, f.reload(t, tx.ID), 2))
		stored := f.reload(t, tx.ID)
		assert.Equal(t, store.StatusFailed, stored.Status)
		assert.Equal(t, ReasonConfirmationTimeout, *stored.Error)
	})

	t.Run("unbounded by default", func(t *testing.T) {
		f := setupPipeline(t, config.LifecycleConfig{})
		tx := submitted(t, f)
		require.NoError(t, f.svc.Confirm(ctx, tx, 500))
		assert.Equal(t, store.StatusSubmitted, f.reload(t, tx.ID).Status)
	})
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{})
	ctx := context.Background()
	f.adapter.receipts = []*common.Receipt{{Found: true, Success: true, Final: true}}
	tx := submitted(t, f)
	require.NoError(t, f.svc.Confirm(ctx, tx, 1))

	stored := f.reload(t, tx.ID)
	require.NoError(t, f.svc.Prepare(ctx, stored))
	_, err := f.svc.Submit(ctx, stored)
	require.NoError(t, err)
	require.NoError(t, f.svc.Confirm(ctx, stored, 2))
	assert.Equal(t, store.StatusConfirmed, f.reload(t, tx.ID).Status)
	assert.Equal(t, 1, f.adapter.prepares)
	assert.Equal(t, 1, f.adapter.submits)
}

func TestRunNow(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{})
	ctx := context.Background()

	tx := f.newTx("10")
	hash, err := f.svc.RunNow(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	assert.Equal(t, store.StatusSubmitted, f.reload(t, tx.ID).Status)

	job := f.nextJob(t)
	assert.Equal(t, queue.JobConfirm, job.Type)
	n, _ := f.queue.Len(ctx)
	assert.Zero(t, n, "no submit job queued behind the inline run")

	f.adapter.balance = "0"
	_, err = f.svc.RunNow(ctx, f.newTx("10"))
	assert.Equal(t, oerrors.ErrCodeInsufficientFunds, oerrors.CodeOf(err))
}

func TestWorkerPoolDrivesStagesOnce(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{ConfirmationsInitialDelaySeconds: 3600})
	ctx := context.Background()

	pool := queue.NewWorkerPool(f.queue, 3, zerolog.Nop())
	f.svc.Register(pool)
	pool.Start(ctx)
	defer pool.Stop()

	tx := f.newTx("1")
	require.NoError(t, f.svc.Create(ctx, tx))
	assert.Eventually(t, func() bool {
		return f.reload(t, tx.ID).Status == store.StatusSubmitted
	}, testTimeout, 10*time.Millisecond)

	// duplicate deliveries of earlier stages are ignored
	require.NoError(t, f.queue.Enqueue(ctx, queue.NewJob(queue.JobPrepare, tx.ID, 0), 0))
	require.NoError(t, f.queue.Enqueue(ctx, queue.NewJob(queue.JobSubmit, tx.ID, 0), 0))
	assert.Eventually(t, func() bool {
		n, _ := f.queue.Len(ctx)
		return n == 1 // only the delayed confirm remains
	}, testTimeout, 10*time.Millisecond)

	f.adapter.mu.Lock()
	defer f.adapter.mu.Unlock()
	assert.Equal(t, 1, f.adapter.prepares)
	assert.Equal(t, 1, f.adapter.submits)
}

func TestRunNowWithWorkersSubmitsOnce(t *testing.T) {
	f := setupPipeline(t, config.LifecycleConfig{ConfirmationsInitialDelaySeconds: 3600})
	ctx := context.Background()

	pool := queue.NewWorkerPool(f.queue, 2, zerolog.Nop())
	f.svc.Register(pool)
	pool.Start(ctx)
	defer pool.Stop()

	const runs = 5
	for i := 0; i < runs; i++ {
		hash, err := f.svc.RunNow(ctx, f.newTx("1"))
		require.NoError(t, err)
		assert.Equal(t, "0xhash", hash)
	}
	assert.Eventually(t, func() bool {
		n, _ := f.queue.Len(ctx)
		return n == runs // one delayed confirm per transaction
	}, testTimeout, 10*time.Millisecond)

	f.adapter.mu.Lock()
	defer f.adapter.mu.Unlock()
	assert.Equal(t, runs, f.adapter.prepares)
	assert.Equal(t, runs, f.adapter.submits)
}

func TestPrepareBindsNetwork(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *store.Blockchain, *store.Blockchain) {
		f := setupPipeline(t, config.LifecycleConfig{ConfirmationsRequired: 1})
		primary := testutils.CreateDefaultChain(t, f.repo, store.ProtocolEVM, 1, true)
		side := &store.Blockchain{Name: "side", Protocol: store.ProtocolEVM, ChainID: 137, RPC: "http://127.0.0.1:1"}
		require.NoError(t, f.repo.CreateBlockchain(ctx, side))
		return f, primary, side
	}

	t.Run("wallet network on every stage", func(t *testing.T) {
		f, _, side := setup(t)
		w := &store.Wallet{Address: "0xside", Protocol: store.ProtocolEVM, WalletType: store.WalletCustodial, BlockchainID: &side.ID}
		require.NoError(t, f.repo.CreateWallet(ctx, w))

		tx := &store.Transaction{WalletID: w.ID, From: w.Address, To: "0xdead", Value: "1"}
		require.NoError(t, f.svc.Create(ctx, tx))
		require.NoError(t, f.svc.Prepare(ctx, tx))
		stored := f.reload(t, tx.ID)
		require.NotNil(t, stored.BlockchainID)
		assert.Equal(t, side.ID, *stored.BlockchainID)

		_, err := f.svc.Submit(ctx, stored)
		require.NoError(t, err)
		f.adapter.receipts = []*common.Receipt{{Found: true, Success: true, Final: true}}
		require.NoError(t, f.svc.Confirm(ctx, f.reload(t, tx.ID), 1))
		assert.Equal(t, store.StatusConfirmed, f.reload(t, tx.ID).Status)

		assert.Equal(t, map[string]uint{
			"prepare":  side.ID,
			"estimate": side.ID,
			"balance":  side.ID,
			"submit":   side.ID,
			"confirm":  side.ID,
		}, f.adapter.networks)
	})

	t.Run("default network for unbound wallet", func(t *testing.T) {
		f, primary, _ := setup(t)
		tx := f.newTx("1")
		require.NoError(t, f.svc.Create(ctx, tx))
		require.NoError(t, f.svc.Prepare(ctx, tx))
		stored := f.reload(t, tx.ID)
		require.NotNil(t, stored.BlockchainID)
		assert.Equal(t, primary.ID, *stored.BlockchainID)
	})

	t.Run("explicit network for unbound wallet", func(t *testing.T) {
		f, _, side := setup(t)
		tx := f.newTx("1")
		tx.BlockchainID = &side.ID
		require.NoError(t, f.svc.Create(ctx, tx))
		require.NoError(t, f.svc.Prepare(ctx, tx))
		assert.Equal(t, store.StatusPrepared, f.reload(t, tx.ID).Status)
		assert.Equal(t, side.ID, f.adapter.networks["balance"])
		assert.Equal(t, side.ID, f.adapter.networks["prepare"])
	})

	t.Run("mismatch with wallet", func(t *testing.T) {
		f, primary, side := setup(t)
		w := &store.Wallet{Address: "0xside", Protocol: store.ProtocolEVM, WalletType: store.WalletCustodial, BlockchainID: &side.ID}
		require.NoError(t, f.repo.CreateWallet(ctx, w))

		tx := &store.Transaction{WalletID: w.ID, BlockchainID: &primary.ID, To: "0xdead", Value: "1"}
		require.NoError(t, f.svc.Create(ctx, tx))
		err := f.svc.Prepare(ctx, tx)
		assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
		assert.Equal(t, store.StatusFailed, f.reload(t, tx.ID).Status)
		assert.Zero(t, f.adapter.prepares)
	})

	t.Run("network of another protocol", func(t *testing.T) {
		f, _, _ := setup(t)
		other := testutils.CreateDefaultChain(t, f.repo, store.ProtocolCardano, 0, false)
		tx := f.newTx("1")
		tx.BlockchainID = &other.ID
		require.NoError(t, f.svc.Create(ctx, tx))
		err := f.svc.Prepare(ctx, tx)
		assert.True(t, oerrors.Is(err, oerrors.ErrValidation))
		assert.Equal(t, store.StatusFailed, f.reload(t, tx.ID).Status)
	})
}
