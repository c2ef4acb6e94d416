package pool

import (
	"context"
	"sync"
	"time"

	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/mailer"
	"github.com/powermaps/contact/internal/models"
	"github.com/powermaps/contact/internal/worker"
	"go.uber.org/zap"
)

const webhookInnerRetries = 2

// JobStore is what the pool needs from the job repository: the worker
// operations plus the janitor's recovery queries.
type JobStore interface {
	worker.JobStore
	ListStuckJobs(ctx context.Context, grace time.Duration) ([]models.Job, error)
	Release(ctx context.Context, id uint) error
}

type WorkerPool struct {
	workers         []*worker.Worker
	store           JobStore
	lockDuration    time.Duration
	janitorInterval time.Duration
	log             *zap.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewWorkerPool(count int, store JobStore, handlers worker.Registry, opts worker.Options, janitorInterval time.Duration, log *zap.Logger) *WorkerPool {
	p := &WorkerPool{
		store:           store,
		lockDuration:    opts.LockDuration,
		janitorInterval: janitorInterval,
		log:             log,
	}

	for i := 1; i <= count; i++ {
		p.workers = append(p.workers, worker.NewWorker(i, store, handlers, opts, log))
	}
	return p
}

// Start launches every worker and the janitor. They run until ctx is
// cancelled or Stop is called.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker.Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}

	p.wg.Add(1)
	go p.janitor(ctx)

	p.log.Info("worker pool started", zap.Int("workers", len(p.workers)))
}

func (p *WorkerPool) janitor(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.RecoverStuck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RecoverStuck puts jobs whose worker vanished back on their queue.
func (p *WorkerPool) RecoverStuck(ctx context.Context) int {
	stuck, err := p.store.ListStuckJobs(ctx, p.lockDuration)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("failed to list stuck jobs", zap.Error(err))
		}
		return 0
	}

	released := 0
	for _, j := range stuck {
		if err := p.store.Release(ctx, j.ID); err != nil {
			p.log.Warn("failed to release stuck job", zap.Uint("job_id", j.ID), zap.Error(err))
			continue
		}
		p.log.Info("recovered stuck job", zap.Uint("job_id", j.ID), zap.String("queue", j.Queue))
		released++
	}
	return released
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		p.log.Info("worker pool stopped")
	})
}

// NewFromConfig builds the pool the binaries run: cfg.Worker sizing and
// timings, with handlers for every job type delivering through the
// configured mailer.
func NewFromConfig(cfg *config.Config, store JobStore, log *zap.Logger) *WorkerPool {
	handlers := worker.NewRegistry(
		mailer.New(cfg.Mailer, log),
		worker.NewWebhookClient(webhookInnerRetries),
		log,
	)

	opts := worker.Options{
		Queues:       cfg.Worker.Queues,
		LockDuration: cfg.Worker.LockDuration,
		PollMin:      cfg.Worker.PollMin,
		PollMax:      cfg.Worker.PollMax,
		RetryBase:    cfg.Worker.RetryBase,
		RetryMax:     cfg.Worker.RetryMax,
	}

	return NewWorkerPool(cfg.Worker.Count, store, handlers, opts, cfg.Worker.JanitorInterval, log)
}
