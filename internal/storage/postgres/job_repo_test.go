package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func emailJob() *models.Job {
	return &models.Job{
		Queue:      config.QueueEmail,
		Type:       config.JobTypeSendEmail,
		Payload:    datatypes.JSON(`{"to":"saif@powermaps.tech","subject":"Contact Form: Hi","html_body":"<p>Hi</p>"}`),
		MaxRetries: 3,
	}
}

func TestJobRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		job     *models.Job
		wantErr bool
		setup   func(db *gorm.DB)
	}{
		{
			name: "defaults status and availability",
			job:  emailJob(),
		},
		{
			name: "db error on duplicate primary key",
			job:  &models.Job{ID: 2, Queue: "email", Type: "send_email"},
			setup: func(db *gorm.DB) {
				_ = db.Create(&models.Job{ID: 2, Queue: "email", Type: "send_email", Status: config.JobStatusQueued, AvailableAt: time.Now().UTC()}).Error
			},
			wantErr: true,
		},
		{
			name: "error when db connection is closed",
			job:  emailJob(),
			setup: func(db *gorm.DB) {
				sqlDB, _ := db.DB()
				sqlDB.Close()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := SetupTestDB(t)
			repo := NewJobRepository(db)

			if tt.setup != nil {
				tt.setup(db)
			}

			err := repo.Create(context.Background(), tt.job)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			got, err := repo.Get(context.Background(), tt.job.ID)
			require.NoError(t, err)
			assert.Equal(t, config.JobStatusQueued, got.Status)
			assert.False(t, got.AvailableAt.IsZero())
			assert.JSONEq(t, string(tt.job.Payload), string(got.Payload))
		})
	}
}

func TestJobRepository_Get_NotFound(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))

	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestJobRepository_List(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	for _, q := range []string{config.QueueEmail, config.QueueWebhooks, config.QueueEmail} {
		j := emailJob()
		j.Queue = q
		require.NoError(t, repo.Create(ctx, j))
	}

	jobs, err := repo.List(ctx, config.QueueEmail)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Less(t, jobs[0].ID, jobs[1].ID)

	jobs, err = repo.List(ctx, config.QueueDefault)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestJobRepository_AcquireNext(t *testing.T) {
	ctx := context.Background()

	t.Run("claims oldest ready job", func(t *testing.T) {
		repo := NewJobRepository(SetupTestDB(t))

		first, second := emailJob(), emailJob()
		first.AvailableAt = time.Now().UTC().Add(-2 * time.Minute)
		second.AvailableAt = time.Now().UTC().Add(-1 * time.Minute)
		require.NoError(t, repo.Create(ctx, second))
		require.NoError(t, repo.Create(ctx, first))

		got, err := repo.AcquireNext(ctx, config.QueueEmail, 7, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, config.JobStatusRunning, got.Status)
		assert.Equal(t, 1, got.Attempts)
		require.NotNil(t, got.LockedBy)
		assert.Equal(t, uint(7), *got.LockedBy)
		require.NotNil(t, got.LockedUntil)
		assert.True(t, got.LockedUntil.After(time.Now().Add(30*time.Second)))
	})

	t.Run("skips future and other queues", func(t *testing.T) {
		repo := NewJobRepository(SetupTestDB(t))

		future := emailJob()
		future.AvailableAt = time.Now().UTC().Add(10 * time.Minute)
		other := emailJob()
		other.Queue = config.QueueWebhooks
		require.NoError(t, repo.Create(ctx, future))
		require.NoError(t, repo.Create(ctx, other))

		_, err := repo.AcquireNext(ctx, config.QueueEmail, 1, time.Minute)
		assert.ErrorIs(t, err, job.ErrNoJobAvailable)
	})

	t.Run("a job is claimed once", func(t *testing.T) {
		repo := NewJobRepository(SetupTestDB(t))
		for range 5 {
			require.NoError(t, repo.Create(ctx, emailJob()))
		}

		var mu sync.Mutex
		claimed := map[uint]int{}
		var wg sync.WaitGroup
		for w := 1; w <= 4; w++ {
			wg.Add(1)
			go func(workerID uint) {
				defer wg.Done()
				for {
					j, err := repo.AcquireNext(ctx, config.QueueEmail, workerID, time.Minute)
					if err != nil {
						return
					}
					mu.Lock()
					claimed[j.ID]++
					mu.Unlock()
				}
			}(uint(w))
		}
		wg.Wait()

		assert.Len(t, claimed, 5)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "job %d claimed %d times", id, n)
		}
	})
}

func TestJobRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	require.NoError(t, repo.Create(ctx, emailJob()))
	j, err := repo.AcquireNext(ctx, config.QueueEmail, 1, time.Minute)
	require.NoError(t, err)

	next := time.Now().UTC().Add(5 * time.Minute)
	require.NoError(t, repo.RetryLater(ctx, job.LeaseOf(j, 1), next, "smtp unavailable"))

	got, err := repo.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusQueued, got.Status)
	assert.Equal(t, "smtp unavailable", got.Error)
	assert.Nil(t, got.LockedBy)
	assert.Nil(t, got.LockedUntil)
	assert.WithinDuration(t, next, got.AvailableAt, time.Second)

	_, err = repo.AcquireNext(ctx, config.QueueEmail, 1, time.Minute)
	assert.ErrorIs(t, err, job.ErrNoJobAvailable, "rescheduled job must wait")

	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", j.ID).
		Update("available_at", time.Now().UTC().Add(-time.Second)).Error)
	j, err = repo.AcquireNext(ctx, config.QueueEmail, 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, j.Attempts)

	require.NoError(t, repo.MarkCompleted(ctx, job.LeaseOf(j, 2), datatypes.JSON(`{"to":"saif@powermaps.tech"}`)))
	got, err = repo.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
	assert.JSONEq(t, `{"to":"saif@powermaps.tech"}`, string(got.Result))
}

func TestJobRepository_MarkFailedAndRequeue(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(SetupTestDB(t))

	require.NoError(t, repo.Create(ctx, emailJob()))
	j, err := repo.AcquireNext(ctx, config.QueueEmail, 1, time.Minute)
	require.NoError(t, err)

	err = repo.Requeue(ctx, j.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFailed, "running job cannot be requeued")

	require.NoError(t, repo.MarkFailed(ctx, job.LeaseOf(j, 1), "mailbox unavailable"))
	got, err := repo.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusFailed, got.Status)
	assert.Equal(t, "mailbox unavailable", got.Error)

	require.NoError(t, repo.Requeue(ctx, j.ID))
	got, err = repo.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusQueued, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Empty(t, got.Error)

	assert.ErrorIs(t, repo.Requeue(ctx, 999), job.ErrJobNotFound)
}

func TestJobRepository_StuckJobs(t *testing.T) {
	ctx := context.Background()
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	for range 2 {
		require.NoError(t, repo.Create(ctx, emailJob()))
	}
	stale, err := repo.AcquireNext(ctx, config.QueueEmail, 1, time.Minute)
	require.NoError(t, err)
	fresh, err := repo.AcquireNext(ctx, config.QueueEmail, 2, time.Minute)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", stale.ID).
		Update("locked_until", time.Now().UTC().Add(-10*time.Minute)).Error)

	stuck, err := repo.ListStuckJobs(ctx, time.Minute)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, stale.ID, stuck[0].ID)

	require.NoError(t, repo.Release(ctx, stale.ID))
	got, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusQueued, got.Status)
	assert.Equal(t, 1, got.Attempts, "release keeps the attempt count")
	assert.Nil(t, got.LockedUntil)

	got, err = repo.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusRunning, got.Status)
}

func TestJobRepository_StaleLeaseCannotFinish(t *testing.T) {
	tests := []struct {
		name        string
		firstWorker uint
		nextWorker  uint
	}{
		{name: "other worker took over", firstWorker: 1, nextWorker: 2},
		{name: "same worker id claimed again", firstWorker: 1, nextWorker: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewJobRepository(SetupTestDB(t))

			require.NoError(t, repo.Create(ctx, emailJob()))
			slow, err := repo.AcquireNext(ctx, config.QueueEmail, tt.firstWorker, time.Minute)
			require.NoError(t, err)
			staleLease := job.LeaseOf(slow, tt.firstWorker)

			require.NoError(t, repo.Release(ctx, slow.ID))
			current, err := repo.AcquireNext(ctx, config.QueueEmail, tt.nextWorker, time.Minute)
			require.NoError(t, err)
			require.Equal(t, slow.ID, current.ID)

			assert.ErrorIs(t, repo.MarkCompleted(ctx, staleLease, datatypes.JSON(`{}`)), job.ErrLeaseLost)
			assert.ErrorIs(t, repo.RetryLater(ctx, staleLease, time.Now().UTC(), "late"), job.ErrLeaseLost)
			assert.ErrorIs(t, repo.MarkFailed(ctx, staleLease, "late"), job.ErrLeaseLost)

			got, err := repo.Get(ctx, current.ID)
			require.NoError(t, err)
			assert.Equal(t, config.JobStatusRunning, got.Status)
			require.NotNil(t, got.LockedBy)
			assert.Equal(t, tt.nextWorker, *got.LockedBy)

			require.NoError(t, repo.MarkCompleted(ctx, job.LeaseOf(current, tt.nextWorker), datatypes.JSON(`{"ok":true}`)))
			got, err = repo.Get(ctx, current.ID)
			require.NoError(t, err)
			assert.Equal(t, config.JobStatusCompleted, got.Status)
		})
	}
}

func TestJobRepository_FinishUnknownJob(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))

	err := repo.MarkFailed(context.Background(), job.Lease{JobID: 404, WorkerID: 1, Attempt: 1}, "gone")
	assert.ErrorIs(t, err, job.ErrLeaseLost)
}
