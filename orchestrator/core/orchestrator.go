// Package core assembles the orchestrator from its configuration: storage,
// key custody, RPC pools, chain adapters, the job queue and the lifecycle
// workers.
package core

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/api"
	"github.com/pushchain/chain-orchestrator/orchestrator/balances"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/common"
	"github.com/pushchain/chain-orchestrator/orchestrator/chains/evm"
	"github.com/pushchain/chain-orchestrator/orchestrator/config"
	"github.com/pushchain/chain-orchestrator/orchestrator/db"
	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
	"github.com/pushchain/chain-orchestrator/orchestrator/estimator"
	"github.com/pushchain/chain-orchestrator/orchestrator/keyrelease"
	"github.com/pushchain/chain-orchestrator/orchestrator/keys"
	"github.com/pushchain/chain-orchestrator/orchestrator/lifecycle"
	"github.com/pushchain/chain-orchestrator/orchestrator/queue"
	"github.com/pushchain/chain-orchestrator/orchestrator/rpcpool"
	"github.com/pushchain/chain-orchestrator/orchestrator/store"
	"github.com/pushchain/chain-orchestrator/orchestrator/webhook"
)

const defaultDatabaseFile = "orchestrator.db"

// Orchestrator owns every long-lived component. Fields are exported for the
// CLI, which drives single operations without starting the workers.
type Orchestrator struct {
	Config     *config.Config
	Repo       *db.Repository
	Vault      *keys.Vault
	Keys       *keys.Engine
	Router     *chains.Router
	Estimator  *estimator.Router
	Queue      queue.Queue
	Lifecycle  *lifecycle.Service
	KeyRelease *keyrelease.Service
	Balances   *balances.Tracker

	log      zerolog.Logger
	database *db.DB
	provider *rpcpool.Provider
	redis    *goredis.Client
	pool     *queue.WorkerPool
	server   *api.Server

	startOnce sync.Once
	stopOnce  sync.Once
}

// New opens storage and wires all components. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Orchestrator, error) {
	dbFile := cfg.DatabaseFile
	if dbFile == "" {
		dbFile = defaultDatabaseFile
	}
	database, err := db.OpenFileDB(cfg.DatabaseDir(), dbFile, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	o, err := Assemble(ctx, cfg, database, log)
	if err != nil {
		_ = database.Close()
		return nil, err
	}
	return o, nil
}

// Assemble wires components on an already open database.
func Assemble(ctx context.Context, cfg *config.Config, database *db.DB, log zerolog.Logger) (*Orchestrator, error) {
	vault, err := keys.NewVault(cfg.MasterKeyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open key vault: %w", err)
	}
	engine, err := keys.NewEngine(cfg.GetProtocolConfig(store.ProtocolBitcoin.String()).Network)
	if err != nil {
		return nil, fmt.Errorf("failed to create key engine: %w", err)
	}

	o := &Orchestrator{
		Config:   cfg,
		Repo:     db.NewRepository(database.Client(), log),
		Vault:    vault,
		Keys:     engine,
		log:      log.With().Str("component", "core").Logger(),
		database: database,
		provider: rpcpool.NewProvider(cfg, log),
	}

	deps := common.Deps{
		Repo:   o.Repo,
		Vault:  vault,
		Keys:   engine,
		RPC:    o.provider,
		Config: cfg,
		Logger: log,
	}
	o.Router = chains.NewRouter(deps)

	var fees *evm.FeeResolver
	if a, err := o.Router.Adapter(store.ProtocolEVM); err == nil {
		if ea, ok := a.(*evm.Adapter); ok {
			fees = ea.FeeResolver()
		}
	}
	o.Estimator = estimator.NewRouter(deps, fees)

	if err := o.openQueue(ctx); err != nil {
		o.provider.Close()
		return nil, err
	}

	events := lifecycle.MultiSink{lifecycle.LogSink{Logger: log}, lifecycle.MetricsSink{}}
	o.Lifecycle = lifecycle.NewService(lifecycle.Config{
		Repo:      o.Repo,
		Router:    o.Router,
		Estimator: o.Estimator,
		Queue:     o.Queue,
		Lifecycle: cfg.Lifecycle,
		Events:    events,
		Logger:    log,
	})
	o.Router.SetIntentRunner(o.Lifecycle)

	o.pool = queue.NewWorkerPool(o.Queue, cfg.WorkerCount, log)
	o.Lifecycle.Register(o.pool)

	o.KeyRelease = keyrelease.NewService(o.Repo, vault, cfg.KeyRelease, log)
	o.Balances = balances.NewTracker(o.Repo, o.Router, webhook.NewNotifier(cfg.Webhook, nil, log), log)
	o.server = api.NewServer(o.Repo, o.Router.Protocols(), cfg.QueryServerPort, log)
	return o, nil
}

func (o *Orchestrator) openQueue(ctx context.Context) error {
	if o.Config.RedisURL == "" {
		o.log.Info().Msg("using in-memory job queue")
		o.Queue = queue.NewMemoryQueue()
		return nil
	}
	client, err := queue.DialRedis(ctx, o.Config.RedisURL, o.log)
	if err != nil {
		return err
	}
	o.redis = client
	o.Queue = queue.NewRedisQueue(client, queue.RedisOptions{}, o.log)
	return nil
}

// Start launches the lifecycle workers and the query server.
func (o *Orchestrator) Start(ctx context.Context) error {
	var err error
	o.startOnce.Do(func() {
		o.log.Info().
			Int("workers", o.Config.WorkerCount).
			Bool("redis", o.redis != nil).
			Msg("starting orchestrator")
		o.pool.Start(ctx)
		if err = o.server.Start(); err != nil {
			o.pool.Stop()
		}
	})
	return err
}

// Run starts the orchestrator and blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Start(ctx); err != nil {
		return err
	}
	o.log.Info().Msg("initialization complete, entering main loop")
	<-ctx.Done()
	o.log.Info().Msg("shutting down orchestrator")
	return o.Stop()
}

// Stop drains workers and releases every resource. Safe to call more than once.
func (o *Orchestrator) Stop() error {
	errs := oerrors.NewErrorGroup()
	o.stopOnce.Do(func() {
		errs.Add(o.server.Stop())
		o.pool.Stop()
		if o.redis != nil {
			errs.Add(o.redis.Close())
		}
		o.provider.Close()
		errs.Add(o.database.Close())
	})
	return errs.ErrorOrNil()
}
