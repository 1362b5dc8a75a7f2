// Package lifecycle drives transactions through
// pending -> preparing -> prepared -> submitted -> confirmed | failed.
// Each stage runs as a queue job and enqueues the next one; a status guard
// makes duplicate deliveries no-ops.
package lifecycle

import (
	"context"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/chains"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/estimator"
	"github.com/pushchain/chain-orchestrator/orchestrator/queue"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
)

// Failure reasons recorded in Transaction.Error.
const (
	ReasonInsufficientFunds   = "insufficient_funds"
	ReasonConfirmationTimeout = "confirmation_timeout"
	ReasonReverted            = "reverted"
)

const (
	defaultConfirmations = 6
	defaultPollInterval  = 10 * time.Second
)

// Config wires a Service.
type Config struct {
	Repo      *db.Repository
	Router    *chains.Router
	Estimator *estimator.Router
	Queue     queue.Queue
	Lifecycle config.LifecycleConfig
	Events    EventSink
	Logger    zerolog.Logger
}

// Service owns every status change of a transaction after creation.
type Service struct {
	repo      *db.Repository
	router    *chains.Router
	estimator *estimator.Router
	queue     queue.Queue
	cfg       config.LifecycleConfig
	events    EventSink
	logger    zerolog.Logger
}

var _ common.IntentRunner = (*Service)(nil)

// NewService creates the pipeline.
func NewService(cfg Config) *Service {
	events := cfg.Events
	if events == nil {
		events = MultiSink{}
	}
	lc := cfg.Lifecycle
	if lc.ConfirmationsRequired == 0 {
		lc.ConfirmationsRequired = defaultConfirmations
	}
	return &Service{
		repo:      cfg.Repo,
		router:    cfg.Router,
		estimator: cfg.Estimator,
		queue:     cfg.Queue,
		cfg:       lc,
		events:    events,
		logger:    cfg.Logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Register installs the stage handlers on pool.
func (s *Service) Register(pool *queue.WorkerPool) {
	pool.Handle(queue.JobPrepare, s.handle(store.StatusPending, func(ctx context.Context, tx *store.Transaction, _ *queue.Job) error {
		return s.Prepare(ctx, tx)
	}))
	pool.Handle(queue.JobSubmit, s.handle(store.StatusPrepared, func(ctx context.Context, tx *store.Transaction, _ *queue.Job) error {
		_, err := s.Submit(ctx, tx)
		return err
	}))
	pool.Handle(queue.JobConfirm, s.handle(store.StatusSubmitted, func(ctx context.Context, tx *store.Transaction, job *queue.Job) error {
		return s.Confirm(ctx, tx, job.Attempt)
	}))
}

type stageFunc func(ctx context.Context, tx *store.Transaction, job *queue.Job) error

// handle loads the job's transaction and skips it unless it is still in
// the status the stage expects.
func (s *Service) handle(expect store.TxStatus, stage stageFunc) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		tx, err := s.repo.GetTransaction(ctx, job.TransactionID)
		if err != nil {
			return err
		}
		if tx.Status != expect {
			s.logger.Debug().
				Uint("tx_id", tx.ID).
				Str("status", string(tx.Status)).
				Str("job_type", job.Type).
				Msg("skipping stale job")
			return nil
		}
		return stage(ctx, tx, job)
	}
}

// Create persists tx as pending and schedules preparation.
func (s *Service) Create(ctx context.Context, tx *store.Transaction) error {
	wallet, err := s.repo.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return oerrors.NewValidationErrorf("", "wallet %d: %v", tx.WalletID, err)
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return oerrors.NewDatabaseError(wallet.Protocol.String(), "create transaction", err)
	}
	s.emit(ctx, tx, wallet.Protocol)
	return s.queue.Enqueue(ctx, queue.NewJob(queue.JobPrepare, tx.ID, 0), 0)
}

// RunNow persists tx and runs prepare and submit inline. Confirmation is
// scheduled on the queue as usual.
func (s *Service) RunNow(ctx context.Context, tx *store.Transaction) (string, error) {
	wallet, err := s.repo.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return "", oerrors.NewValidationErrorf("", "wallet %d: %v", tx.WalletID, err)
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return "", oerrors.NewDatabaseError(wallet.Protocol.String(), "create transaction", err)
	}
	s.emit(ctx, tx, wallet.Protocol)

	if err := s.runPrepare(ctx, tx); err != nil {
		return "", err
	}
	if tx.Status != store.StatusPrepared {
		return "", oerrors.NewTransactionError(wallet.Protocol.String(), "transaction did not reach prepared", nil).
			WithContext("status", tx.Status)
	}
	return s.Submit(ctx, tx)
}

// Prepare runs the protocol hook, the cost estimate and the balance check,
// then schedules submission.
func (s *Service) Prepare(ctx context.Context, tx *store.Transaction) error {
	if tx.Status != store.StatusPending {
		return nil
	}
	if err := s.runPrepare(ctx, tx); err != nil {
		return err
	}
	if tx.Status != store.StatusPrepared {
		return nil
	}
	return s.queueNext(ctx, tx, queue.JobSubmit, 0, 0)
}

// runPrepare moves a pending tx to prepared without scheduling anything.
func (s *Service) runPrepare(ctx context.Context, tx *store.Transaction) error {
	if tx.Status != store.StatusPending {
		return nil
	}
	wallet, err := s.repo.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return s.fail(ctx, tx, "", err)
	}
	p := wallet.Protocol

	if err := s.transition(ctx, tx, p, store.StatusPreparing); err != nil {
		return err
	}
	if err := s.prepare(ctx, tx, wallet); err != nil {
		return s.fail(ctx, tx, p, err)
	}
	return s.transition(ctx, tx, p, store.StatusPrepared)
}

func (s *Service) prepare(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	p := wallet.Protocol
	adapter, err := s.router.Adapter(p)
	if err != nil {
		return err
	}
	if err := s.bindNetwork(ctx, tx, wallet); err != nil {
		return err
	}
	hooks, ok, err := s.router.TransactionAdapter(p)
	if err != nil {
		return err
	}
	if ok {
		if err := hooks.PrepareTransaction(ctx, tx, wallet); err != nil {
			return err
		}
	}

	est, err := s.estimator.Estimate(ctx, p, tx)
	if err != nil {
		return err
	}
	tx.Meta.Cost = est.CostMeta()

	if s.cfg.DryRun {
		return nil
	}
	// balance is read on the network the tx is pinned to
	onNetwork := *wallet
	onNetwork.BlockchainID = tx.BlockchainID
	raw, err := adapter.GetNativeBalance(ctx, &onNetwork)
	if err != nil {
		return err
	}
	balance, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return oerrors.NewRPCError(p.String(), "unparseable balance "+raw, nil)
	}
	if balance.Cmp(est.TotalRequired) < 0 {
		return oerrors.NewInsufficientFundsError(p.String(), est.TotalRequired.String(), balance.String())
	}
	return nil
}

// bindNetwork pins tx to a single network before any RPC is made, so
// prepare, submit, estimate and confirm all talk to the same chain.
func (s *Service) bindNetwork(ctx context.Context, tx *store.Transaction, wallet *store.Wallet) error {
	p := wallet.Protocol
	switch {
	case tx.BlockchainID == nil && wallet.BlockchainID != nil:
		id := *wallet.BlockchainID
		tx.BlockchainID = &id
		return nil
	case tx.BlockchainID == nil:
		chain, err := s.repo.DefaultBlockchain(ctx, p)
		if oerrors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return oerrors.NewDatabaseError(p.String(), "default blockchain", err)
		}
		id := chain.ID
		tx.BlockchainID = &id
		return nil
	case wallet.BlockchainID != nil && *wallet.BlockchainID != *tx.BlockchainID:
		return oerrors.NewValidationErrorf(p.String(), "transaction targets blockchain %d but wallet %d is bound to %d",
			*tx.BlockchainID, wallet.ID, *wallet.BlockchainID)
	}
	chain, err := s.repo.GetBlockchain(ctx, *tx.BlockchainID)
	if err != nil {
		return oerrors.NewValidationErrorf(p.String(), "blockchain %d: %v", *tx.BlockchainID, err)
	}
	if chain.Protocol != p {
		return oerrors.NewValidationErrorf(p.String(), "blockchain %d belongs to %s", chain.ID, chain.Protocol)
	}
	return nil
}

// Submit signs and broadcasts a prepared transaction.
func (s *Service) Submit(ctx context.Context, tx *store.Transaction) (string, error) {
	if tx.Status != store.StatusPrepared {
		return "", nil
	}
	wallet, err := s.repo.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return "", s.fail(ctx, tx, "", err)
	}
	p := wallet.Protocol

	hooks, ok, err := s.router.TransactionAdapter(p)
	if err == nil && !ok {
		err = oerrors.NewNotImplementedError(p.String(), "submitTransaction")
	}
	if err != nil {
		return "", s.fail(ctx, tx, p, err)
	}

	hash, err := hooks.SubmitTransaction(ctx, tx, wallet)
	if err != nil {
		return "", s.fail(ctx, tx, p, err)
	}
	tx.TxHash = &hash
	if err := s.transition(ctx, tx, p, store.StatusSubmitted); err != nil {
		return hash, err
	}
	return hash, s.queueNext(ctx, tx, queue.JobConfirm, 1, s.cfg.InitialDelay())
}

// Confirm polls inclusion once and either finishes the transaction or
// schedules the next poll.
func (s *Service) Confirm(ctx context.Context, tx *store.Transaction, attempt int) error {
	if tx.Status != store.StatusSubmitted {
		return nil
	}
	wallet, err := s.repo.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return s.fail(ctx, tx, "", err)
	}
	p := wallet.Protocol

	hooks, ok, err := s.router.TransactionAdapter(p)
	if err == nil && !ok {
		err = oerrors.NewNotImplementedError(p.String(), "checkConfirmations")
	}
	if err != nil {
		return s.fail(ctx, tx, p, err)
	}

	receipt, err := hooks.CheckConfirmations(ctx, tx)
	if err != nil {
		s.logger.Warn().Err(err).Uint("tx_id", tx.ID).Int("attempt", attempt).Msg("confirmation check failed")
		return s.poll(ctx, tx, p, attempt)
	}
	if !receipt.Found {
		return s.poll(ctx, tx, p, attempt)
	}
	if !receipt.Success {
		reason := receipt.Reason
		if reason == "" {
			reason = ReasonReverted
		}
		return s.failReason(ctx, tx, p, reason)
	}

	tx.Confirmations = receipt.Confirmations()
	if receipt.Final || tx.Confirmations >= s.cfg.ConfirmationsRequired {
		return s.transition(ctx, tx, p, store.StatusConfirmed)
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return s.ignoreStale(err)
	}
	return s.poll(ctx, tx, p, attempt)
}

// poll schedules the next confirmation attempt on the fixed interval, or
// fails the transaction once the configured cap is reached.
func (s *Service) poll(ctx context.Context, tx *store.Transaction, p store.Protocol, attempt int) error {
	if limit := s.cfg.ConfirmationsMaxAttempts; limit > 0 && attempt >= limit {
		return s.failReason(ctx, tx, p, ReasonConfirmationTimeout)
	}
	interval := s.cfg.PollInterval()
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return s.queueNext(ctx, tx, queue.JobConfirm, attempt+1, interval)
}

func (s *Service) queueNext(ctx context.Context, tx *store.Transaction, jobType string, attempt int, delay time.Duration) error {
	if err := s.queue.Enqueue(ctx, queue.NewJob(jobType, tx.ID, attempt), delay); err != nil {
		s.logger.Error().Err(err).Uint("tx_id", tx.ID).Str("job_type", jobType).Msg("failed to schedule stage")
		return err
	}
	return nil
}

func (s *Service) transition(ctx context.Context, tx *store.Transaction, p store.Protocol, to store.TxStatus) error {
	if err := s.repo.TransitionStatus(ctx, tx, to); err != nil {
		return s.ignoreStale(err)
	}
	s.emit(ctx, tx, p)
	return nil
}

// fail records err on tx and returns it so callers can surface the cause.
func (s *Service) fail(ctx context.Context, tx *store.Transaction, p store.Protocol, err error) error {
	reason := err.Error()
	if oerrors.IsChainError(err, oerrors.ErrCodeInsufficientFunds) {
		reason = ReasonInsufficientFunds
	}
	if ferr := s.failReason(ctx, tx, p, reason); ferr != nil {
		s.logger.Error().Err(ferr).Uint("tx_id", tx.ID).Msg("failed to record failure")
	}
	return err
}

func (s *Service) failReason(ctx context.Context, tx *store.Transaction, p store.Protocol, reason string) error {
	tx.Error = &reason
	return s.transition(ctx, tx, p, store.StatusFailed)
}

// ignoreStale drops compare-and-set losses: another delivery of the same
// stage already moved the transaction on.
func (s *Service) ignoreStale(err error) error {
	if oerrors.Is(err, db.ErrStaleStatus) {
		s.logger.Debug().Err(err).Msg("status changed concurrently")
		return nil
	}
	return err
}

func (s *Service) emit(ctx context.Context, tx *store.Transaction, p store.Protocol) {
	ev := TransactionEvent{
		TransactionID: tx.ID,
		Protocol:      p,
		Status:        tx.Status,
		At:            time.Now(),
	}
	if tx.TxHash != nil {
		ev.TxHash = *tx.TxHash
	}
	if tx.Error != nil {
		ev.Error = *tx.Error
	}
	s.events.Emit(ctx, ev)
}
