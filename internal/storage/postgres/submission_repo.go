package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/powermaps/contact/internal/contact"
	"github.com/powermaps/contact/internal/models"
	"gorm.io/gorm"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

var _ contact.SubmissionRepoInterface = (*SubmissionRepository)(nil)

// CreateWithJobs stores sub together with its delivery jobs in a single
// transaction. sub.JobID is set to the email job. Either everything is
// written or nothing is.
func (r *SubmissionRepository) CreateWithJobs(ctx context.Context, sub *models.Submission, emailJob *models.Job, extra ...*models.Job) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prepareJob(emailJob)
		if err := tx.Create(emailJob).Error; err != nil {
			return fmt.Errorf("create email job: %w", err)
		}

		sub.JobID = &emailJob.ID
		if err := tx.Omit("Job").Create(sub).Error; err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		for _, j := range extra {
			prepareJob(j)
			if err := tx.Create(j).Error; err != nil {
				return fmt.Errorf("create %s job: %w", j.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		sub.JobID = nil
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// Get loads a submission with its email job.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	if err := r.db.WithContext(ctx).Preload("Job").First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get submission %s: %w", id, contact.ErrSubmissionNotFound)
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return &sub, nil
}

// List returns submissions newest first.
func (r *SubmissionRepository) List(ctx context.Context, limit, offset int) ([]models.Submission, error) {
	var subs []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Job").
		Order("created_at DESC, id").
		Limit(limit).
		Offset(offset).
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}
