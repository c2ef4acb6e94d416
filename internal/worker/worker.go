package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// bookkeepingTimeout bounds the status writes made after a job ran, which
// still happen when the worker context is being cancelled.
const bookkeepingTimeout = 5 * time.Second

// JobStore is the part of the job repository a worker needs.
type JobStore interface {
	AcquireNext(ctx context.Context, queue string, workerID uint, lockDuration time.Duration) (*models.Job, error)
	MarkCompleted(ctx context.Context, lease job.Lease, result datatypes.JSON) error
	RetryLater(ctx context.Context, lease job.Lease, availableAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, lease job.Lease, errMsg string) error
}

type Options struct {
	Queues       []string
	LockDuration time.Duration
	PollMin      time.Duration
	PollMax      time.Duration
	RetryBase    time.Duration
	RetryMax     time.Duration
}

type Worker struct {
	ID       int
	store    JobStore
	handlers Registry
	opts     Options
	log      *zap.Logger
	now      func() time.Time
}

func NewWorker(id int, store JobStore, handlers Registry, opts Options, log *zap.Logger) *Worker {
	return &Worker{
		ID:       id,
		store:    store,
		handlers: handlers,
		opts:     opts,
		log:      log.With(zap.Int("worker_id", id)),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. Idle polls back off from PollMin to
// PollMax; a processed job resets the delay.
func (w *Worker) Run(ctx context.Context) {
	delay := w.opts.PollMin

	for {
		if w.RunOnce(ctx) {
			delay = w.opts.PollMin
			if ctx.Err() != nil {
				return
			}
			continue
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		delay = min(delay*2, w.opts.PollMax)
	}
}

// RunOnce claims and processes at most one job. It reports whether a job was found.
func (w *Worker) RunOnce(ctx context.Context) bool {
	j := w.pullJob(ctx)
	if j == nil {
		return false
	}
	w.process(ctx, j)
	return true
}

func (w *Worker) pullJob(ctx context.Context) *models.Job {
	for _, q := range w.opts.Queues {
		j, err := w.store.AcquireNext(ctx, q, uint(w.ID), w.opts.LockDuration)
		if err == nil {
			return j
		}
		if !errors.Is(err, job.ErrNoJobAvailable) && ctx.Err() == nil {
			w.log.Warn("failed to acquire job", zap.String("queue", q), zap.Error(err))
		}
	}
	return nil
}

func (w *Worker) process(ctx context.Context, j *models.Job) {
	log := w.log.With(zap.Uint("job_id", j.ID), zap.String("type", j.Type), zap.Int("attempt", j.Attempts))

	bookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	lease := job.LeaseOf(j, uint(w.ID))

	handler, ok := w.handlers[j.Type]
	if !ok {
		log.Error("no handler registered for job type")
		w.markFailed(bookCtx, log, lease, fmt.Sprintf("unknown job type: %s", j.Type))
		return
	}

	res, err := w.execute(ctx, handler, j)
	if err != nil {
		if j.Attempts > j.MaxRetries {
			log.Error("job failed permanently", zap.Error(err))
			w.markFailed(bookCtx, log, lease, err.Error())
			return
		}

		next := w.now().Add(w.backoff(j.Attempts))
		log.Warn("job failed, retrying", zap.Error(err), zap.Time("next_run", next))
		if rerr := w.store.RetryLater(bookCtx, lease, next, err.Error()); rerr != nil {
			logWriteError(log, "failed to reschedule job", rerr)
		}
		return
	}

	b, err := json.Marshal(res)
	if err != nil {
		w.markFailed(bookCtx, log, lease, fmt.Sprintf("encode result: %v", err))
		return
	}

	if err := w.store.MarkCompleted(bookCtx, lease, datatypes.JSON(b)); err != nil {
		logWriteError(log, "failed to mark job completed", err)
		return
	}
	log.Debug("job completed")
}

func (w *Worker) execute(ctx context.Context, handler HandlerFunc, j *models.Job) (res any, err error) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.LockDuration)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, j.Payload)
}

func (w *Worker) markFailed(ctx context.Context, log *zap.Logger, lease job.Lease, msg string) {
	if err := w.store.MarkFailed(ctx, lease, msg); err != nil {
		logWriteError(log, "failed to mark job failed", err)
	}
}

// logWriteError downgrades a lost lease to a warning: the job belongs to
// another claim now and this outcome is dropped.
func logWriteError(log *zap.Logger, msg string, err error) {
	if errors.Is(err, job.ErrLeaseLost) {
		log.Warn("job lease lost, outcome discarded", zap.Error(err))
		return
	}
	log.Error(msg, zap.Error(err))
}

// backoff returns RetryBase * 2^(attempts-1), capped at RetryMax.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.opts.RetryBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= w.opts.RetryMax {
			return w.opts.RetryMax
		}
	}
	return min(d, w.opts.RetryMax)
}
