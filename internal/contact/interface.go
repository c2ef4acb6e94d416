package contact

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/models"
)

// SubmissionRepoInterface stores submissions together with their delivery jobs.
type SubmissionRepoInterface interface {
	CreateWithJobs(ctx context.Context, sub *models.Submission, emailJob *models.Job, extra ...*models.Job) error
	Get(ctx context.Context, id string) (*models.Submission, error)
	List(ctx context.Context, limit, offset int) ([]models.Submission, error)
}

type ServiceInterface interface {
	Submit(ctx context.Context, req *dto.ContactRequest, meta dto.ClientMeta) (*dto.ContactResponse, error)
	GetSubmission(ctx context.Context, id string) (*dto.SubmissionDTO, error)
	ListSubmissions(ctx context.Context, limit, offset int) ([]dto.SubmissionDTO, error)
}

type HandlerInterface interface {
	Submit(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
}
