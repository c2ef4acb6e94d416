package mocks

import (
	"context"

	"github.com/powermaps/contact/internal/dto"
	"github.com/stretchr/testify/mock"
)

type JobServiceMock struct {
	mock.Mock
}

func (m *JobServiceMock) GetJobByID(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, id)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}

func (m *JobServiceMock) ListJobs(ctx context.Context, queue string) ([]dto.JobResponseDTO, error) {
	args := m.Called(ctx, queue)

	jobs, _ := args.Get(0).([]dto.JobResponseDTO)
	return jobs, args.Error(1)
}

func (m *JobServiceMock) Requeue(ctx context.Context, id uint) (*dto.JobResponseDTO, error) {
	args := m.Called(ctx, id)

	resp, _ := args.Get(0).(*dto.JobResponseDTO)
	return resp, args.Error(1)
}
