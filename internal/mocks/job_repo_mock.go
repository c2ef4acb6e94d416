package mocks

import (
	"context"

	"github.com/powermaps/contact/internal/models"
	"github.com/stretchr/testify/mock"
)

type JobRepoMock struct {
	mock.Mock
}

func (m *JobRepoMock) Create(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *JobRepoMock) Get(ctx context.Context, id uint) (*models.Job, error) {
	args := m.Called(ctx, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) List(ctx context.Context, queue string) ([]models.Job, error) {
	args := m.Called(ctx, queue)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) Requeue(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
