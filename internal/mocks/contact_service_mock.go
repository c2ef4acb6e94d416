package mocks

import (
	"context"

	"github.com/powermaps/contact/internal/dto"
	"github.com/stretchr/testify/mock"
)

type ContactServiceMock struct {
	mock.Mock
}

func (m *ContactServiceMock) Submit(ctx context.Context, req *dto.ContactRequest, meta dto.ClientMeta) (*dto.ContactResponse, error) {
	args := m.Called(ctx, req, meta)

	resp, _ := args.Get(0).(*dto.ContactResponse)
	return resp, args.Error(1)
}

func (m *ContactServiceMock) GetSubmission(ctx context.Context, id string) (*dto.SubmissionDTO, error) {
	args := m.Called(ctx, id)

	sub, _ := args.Get(0).(*dto.SubmissionDTO)
	return sub, args.Error(1)
}

func (m *ContactServiceMock) ListSubmissions(ctx context.Context, limit, offset int) ([]dto.SubmissionDTO, error) {
	args := m.Called(ctx, limit, offset)

	subs, _ := args.Get(0).([]dto.SubmissionDTO)
	return subs, args.Error(1)
}
