package job

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/models"
)

// JobRepoInterface defines the contract for job repository operations.
type JobRepoInterface interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id uint) (*models.Job, error)
	List(ctx context.Context, queue string) ([]models.Job, error)
	Requeue(ctx context.Context, id uint) error
}

// JobServiceInterface defines the contract for job business logic operations.
type JobServiceInterface interface {
	GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error)
	ListJobs(ctx context.Context, queue string) ([]dto.JobResponseDTO, error)
	Requeue(ctx context.Context, id uint) (*dto.JobResponseDTO, error)
}

// JobHandlerInterface defines the contract for HTTP request handlers.
type JobHandlerInterface interface {
	Get(c *gin.Context)
	List(c *gin.Context)
	Retry(c *gin.Context)
}
