package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/chain-orchestrator/orchestrator/metrics"
)

// Handler runs one job. Errors are logged and the job is not retried;
// stages schedule their own follow-ups.
type Handler func(ctx context.Context, job *Job) error

const dequeueErrorBackoff = time.Second

// WorkerPool consumes a Queue with a fixed number of goroutines.
type WorkerPool struct {
	queue    Queue
	workers  int
	handlers map[string]Handler
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a pool; workers below 1 means 1.
func NewWorkerPool(q Queue, workers int, logger zerolog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		queue:    q,
		workers:  workers,
		handlers: make(map[string]Handler),
		logger:   logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Handle registers the handler of a job type. Call before Start.
func (p *WorkerPool) Handle(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Start launches the workers and returns immediately. Subsequent calls are
// no-ops until Stop.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info().Int("workers", p.workers).Msg("worker pool started")
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info().Msg("worker pool stopped")
}

func (p *WorkerPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With().Int("worker", id).Logger()

	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueErrorBackoff):
			}
			continue
		}
		p.dispatch(ctx, logger, job)
	}
}

func (p *WorkerPool) dispatch(ctx context.Context, logger zerolog.Logger, job *Job) {
	log := logger.With().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Uint("tx_id", job.TransactionID).
		Int("attempt", job.Attempt).
		Logger()

	if err := p.invoke(ctx, job); err != nil {
		metrics.StageError(job.Type)
		log.Error().Err(err).Msg("job failed")
	} else {
		log.Debug().Msg("job done")
	}

	// ack with a fresh context so shutdown does not leave the job claimed
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.queue.Ack(ackCtx, job); err != nil {
		log.Warn().Err(err).Msg("failed to ack job")
	}
}

func (p *WorkerPool) invoke(ctx context.Context, job *Job) (err error) {
	h, ok := p.handlers[job.Type]
	if !ok {
		return errors.New("no handler for job type")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}
