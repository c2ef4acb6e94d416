package job

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/models"
)

type JobService struct {
	repo JobRepoInterface
}

func NewJobService(repo JobRepoInterface) *JobService {
	return &JobService{repo: repo}
}

var _ JobServiceInterface = (*JobService)(nil)

// GetJobByID retrieves a job by its ID from the repository.
// It maps repository errors to appropriate API errors
// (e.g., not found, timeout, or internal failure).
func (s *JobService) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "failed to get job")
	}

	resp := ToResponse(j)
	return &resp, nil
}

// ListJobs retrieves all jobs belonging to a specific queue.
func (s *JobService) ListJobs(ctx context.Context, queue string) ([]dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if !slices.Contains(config.AllowedQueues, queue) {
		return nil, common.NewAPIError(
			http.StatusBadRequest,
			"invalid queue",
			map[string]any{
				"provided": queue,
				"allowed":  config.AllowedQueues,
			},
		)
	}

	jobs, err := s.repo.List(ctx, queue)
	if err != nil {
		return nil, mapRepoError(err, "failed to list jobs")
	}

	dtos := make([]dto.JobResponseDTO, len(jobs))
	for i := range jobs {
		dtos[i] = ToResponse(&jobs[i])
	}

	return dtos, nil
}

// Requeue puts a failed job back on its queue with its attempts reset and
// returns the updated job.
func (s *JobService) Requeue(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if err := s.repo.Requeue(ctx, id); err != nil {
		return nil, mapRepoError(err, "failed to requeue job")
	}

	return s.GetJobByID(ctx, id)
}

func mapRepoError(err error, fallback string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return common.Errf(http.StatusRequestTimeout, "request timed out")
	case errors.Is(err, ErrJobNotFound):
		return common.Errf(http.StatusNotFound, "job not found")
	case errors.Is(err, ErrJobNotFailed):
		return common.Errf(http.StatusConflict, "only failed jobs can be retried")
	default:
		return common.Errf(http.StatusInternalServerError, "%s", fallback)
	}
}

// ToResponse converts a stored job into its API representation.
func ToResponse(j *models.Job) dto.JobResponseDTO {
	return dto.JobResponseDTO{
		ID:          j.ID,
		Queue:       j.Queue,
		Type:        j.Type,
		Payload:     json.RawMessage(j.Payload),
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxRetries:  j.MaxRetries,
		Result:      json.RawMessage(j.Result),
		Error:       j.Error,
		AvailableAt: j.AvailableAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
