package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// acquireBatchSize is how many candidates AcquireNext tries to claim
// before giving up on a queue for this round.
const acquireBatchSize = 5

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

var _ job.JobRepoInterface = (*JobRepository)(nil)

func prepareJob(j *models.Job) {
	if j.Status == "" {
		j.Status = config.JobStatusQueued
	}
	if j.AvailableAt.IsZero() {
		j.AvailableAt = time.Now().UTC()
	}
}

// Create inserts a new job record. Status defaults to queued and
// AvailableAt to now.
func (r *JobRepository) Create(ctx context.Context, j *models.Job) error {
	prepareJob(j)
	if err := r.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get retrieves a single job record by its ID. A missing row yields an
// error wrapping job.ErrJobNotFound.
func (r *JobRepository) Get(ctx context.Context, id uint) (*models.Job, error) {
	var j models.Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get job %d: %w", id, job.ErrJobNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// List retrieves all jobs belonging to a specific queue, oldest first.
func (r *JobRepository) List(ctx context.Context, queue string) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("queue = ?", queue).
		Order("id").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// AcquireNext claims the oldest ready job on queue for workerID. The claim
// is a conditional update on status, so concurrent workers racing for the
// same row cannot both win. Attempts is incremented as part of the claim.
func (r *JobRepository) AcquireNext(ctx context.Context, queue string, workerID uint, lockDuration time.Duration) (*models.Job, error) {
	now := time.Now().UTC()

	var candidates []uint
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("queue = ? AND status = ? AND available_at <= ?", queue, string(config.JobStatusQueued), now).
		Order("available_at, id").
		Limit(acquireBatchSize).
		Pluck("id", &candidates).Error; err != nil {
		return nil, fmt.Errorf("acquire job: %w", err)
	}

	lockedUntil := now.Add(lockDuration)
	for _, id := range candidates {
		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", id, string(config.JobStatusQueued)).
			Updates(map[string]any{
				"status":       string(config.JobStatusRunning),
				"locked_by":    workerID,
				"locked_until": lockedUntil,
				"attempts":     gorm.Expr("attempts + ?", 1),
			})
		if res.Error != nil {
			return nil, fmt.Errorf("acquire job: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return r.Get(ctx, id)
		}
	}

	return nil, job.ErrNoJobAvailable
}

// MarkCompleted stores the handler result and releases the lock.
func (r *JobRepository) MarkCompleted(ctx context.Context, lease job.Lease, result datatypes.JSON) error {
	return r.finish(ctx, lease, "mark completed", map[string]any{
		"status":       string(config.JobStatusCompleted),
		"result":       result,
		"error":        "",
		"locked_by":    nil,
		"locked_until": nil,
	})
}

// RetryLater puts the job back on its queue, not runnable before availableAt.
func (r *JobRepository) RetryLater(ctx context.Context, lease job.Lease, availableAt time.Time, errMsg string) error {
	return r.finish(ctx, lease, "retry later", map[string]any{
		"status":       string(config.JobStatusQueued),
		"available_at": availableAt.UTC(),
		"error":        errMsg,
		"locked_by":    nil,
		"locked_until": nil,
	})
}

// MarkFailed records a terminal failure.
func (r *JobRepository) MarkFailed(ctx context.Context, lease job.Lease, errMsg string) error {
	return r.finish(ctx, lease, "mark failed", map[string]any{
		"status":       string(config.JobStatusFailed),
		"error":        errMsg,
		"locked_by":    nil,
		"locked_until": nil,
	})
}

// finish applies updates only while the job is still running under lease.
// A write from a worker whose claim was released and taken over matches no
// row and returns job.ErrLeaseLost.
func (r *JobRepository) finish(ctx context.Context, lease job.Lease, op string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ? AND locked_by = ? AND attempts = ?",
			lease.JobID, string(config.JobStatusRunning), lease.WorkerID, lease.Attempt).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s job %d: %w", op, lease.JobID, job.ErrLeaseLost)
	}
	return nil
}

// ListStuckJobs returns running jobs whose lock expired more than grace ago.
func (r *JobRepository) ListStuckJobs(ctx context.Context, grace time.Duration) ([]models.Job, error) {
	cutoff := time.Now().UTC().Add(-grace)

	var jobs []models.Job
	if err := r.db.WithContext(ctx).
		Where("status = ? AND locked_until < ?", string(config.JobStatusRunning), cutoff).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	return jobs, nil
}

// Release returns a running job to the queue without touching attempts.
func (r *JobRepository) Release(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(config.JobStatusRunning)).
		Updates(map[string]any{
			"status":       string(config.JobStatusQueued),
			"locked_by":    nil,
			"locked_until": nil,
		}).Error; err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	return nil
}

// Requeue gives a failed job a fresh set of attempts.
func (r *JobRepository) Requeue(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(config.JobStatusFailed)).
		Updates(map[string]any{
			"status":       string(config.JobStatusQueued),
			"attempts":     0,
			"error":        "",
			"available_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("requeue job: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("requeue job %d: %w", id, job.ErrJobNotFailed)
}
