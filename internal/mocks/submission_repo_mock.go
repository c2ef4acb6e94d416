package mocks

import (
	"context"

	"github.com/powermaps/contact/internal/models"
	"github.com/stretchr/testify/mock"
)

type SubmissionRepoMock struct {
	mock.Mock
}

func (m *SubmissionRepoMock) CreateWithJobs(ctx context.Context, sub *models.Submission, emailJob *models.Job, extra ...*models.Job) error {
	args := m.Called(ctx, sub, emailJob, extra)
	return args.Error(0)
}

func (m *SubmissionRepoMock) Get(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)

	sub, _ := args.Get(0).(*models.Submission)
	return sub, args.Error(1)
}

func (m *SubmissionRepoMock) List(ctx context.Context, limit, offset int) ([]models.Submission, error) {
	args := m.Called(ctx, limit, offset)

	subs, _ := args.Get(0).([]models.Submission)
	return subs, args.Error(1)
}
