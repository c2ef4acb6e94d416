package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/mocks"
	"github.com/powermaps/contact/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testContactConfig() config.ContactConfig {
	return config.ContactConfig{
		Recipient:      "saif@powermaps.tech",
		MaxRetries:     3,
		WebhookTimeout: 10 * time.Second,
	}
}

func newTestService(repo SubmissionRepoInterface, cfg config.ContactConfig, log *zap.Logger) *Service {
	s := NewService(repo, cfg, log)
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string { return "7d1f4c1e-2a4b-4f0e-9b55-5f4e3b2a1c00" }
	return s
}

func TestService_Submit(t *testing.T) {
	t.Run("stores submission and email job", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		repo := new(mocks.SubmissionRepoMock)

		var gotSub *models.Submission
		var gotJob *models.Job
		repo.On("CreateWithJobs", mock.Anything, mock.Anything, mock.Anything, []*models.Job(nil)).
			Run(func(args mock.Arguments) {
				gotSub = args.Get(1).(*models.Submission)
				gotJob = args.Get(2).(*models.Job)
			}).
			Return(nil)

		resp, err := newTestService(repo, testContactConfig(), zap.New(core)).
			Submit(context.Background(), validRequest(), dto.ClientMeta{RemoteIP: "10.0.0.7", UserAgent: "curl/8"})
		require.NoError(t, err)

		assert.Equal(t, "7d1f4c1e-2a4b-4f0e-9b55-5f4e3b2a1c00", resp.ID)
		assert.Equal(t, MsgSent, resp.Message)

		assert.Equal(t, "Amira Ben Salah", gotSub.Name)
		assert.Equal(t, "10.0.0.7", gotSub.RemoteIP)
		assert.Equal(t, fixedNow, gotSub.CreatedAt)

		assert.Equal(t, config.QueueEmail, gotJob.Queue)
		assert.Equal(t, config.JobTypeSendEmail, gotJob.Type)
		assert.Equal(t, 3, gotJob.MaxRetries)

		var payload dto.SendEmailPayload
		require.NoError(t, json.Unmarshal(gotJob.Payload, &payload))
		assert.Equal(t, "saif@powermaps.tech", payload.To)
		assert.Equal(t, "amira@example.tn", payload.ReplyTo)
		assert.Equal(t, "Contact Form: Charging stations in Sousse", payload.Subject)
		assert.Contains(t, payload.HTMLBody, "coastal highway")
		assert.Equal(t, resp.ID, payload.SubmissionID)

		entries := logs.FilterMessage("contact form submission").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "Amira Ben Salah", fields["name"])
		assert.Equal(t, "amira@example.tn", fields["email"])
		assert.Equal(t, "Charging stations in Sousse", fields["subject"])
		assert.Equal(t, "Do you plan to cover the coastal highway?", fields["message"])
		assert.Contains(t, fields, "timestamp")

		repo.AssertExpectations(t)
	})

	t.Run("webhook job added when configured", func(t *testing.T) {
		cfg := testContactConfig()
		cfg.WebhookURL = "https://hooks.example.com/contact"
		cfg.WebhookTimeout = 2 * time.Minute

		repo := new(mocks.SubmissionRepoMock)
		var extra []*models.Job
		repo.On("CreateWithJobs", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { extra = args.Get(3).([]*models.Job) }).
			Return(nil)

		_, err := newTestService(repo, cfg, zap.NewNop()).Submit(context.Background(), validRequest(), dto.ClientMeta{})
		require.NoError(t, err)

		require.Len(t, extra, 1)
		assert.Equal(t, config.QueueWebhooks, extra[0].Queue)
		assert.Equal(t, config.JobTypeSendWebhook, extra[0].Type)

		var payload dto.SendWebhookPayload
		require.NoError(t, json.Unmarshal(extra[0].Payload, &payload))
		assert.Equal(t, "https://hooks.example.com/contact", payload.URL)
		assert.Equal(t, http.MethodPost, payload.Method)
		assert.Equal(t, 30, payload.Timeout)
		assert.Equal(t, WebhookEvent, payload.Headers[dto.EventHeader])

		var body dto.WebhookSubmissionBody
		require.NoError(t, json.Unmarshal(payload.Body, &body))
		assert.Equal(t, WebhookEvent, body.Event)
		assert.Equal(t, "7d1f4c1e-2a4b-4f0e-9b55-5f4e3b2a1c00", body.ID)
		assert.Equal(t, "Charging stations in Sousse", body.Subject)
	})

	t.Run("validation error skips the repository", func(t *testing.T) {
		repo := new(mocks.SubmissionRepoMock)
		req := validRequest()
		req.Email = "nope"

		_, err := newTestService(repo, testContactConfig(), zap.NewNop()).Submit(context.Background(), req, dto.ClientMeta{})
		apiErr := common.AsAPIError(err)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, MsgInvalidEmail, apiErr.Message)
		repo.AssertNotCalled(t, "CreateWithJobs")
	})

	t.Run("storage failure is a 500 with the generic message", func(t *testing.T) {
		repo := new(mocks.SubmissionRepoMock)
		repo.On("CreateWithJobs", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("save submission: connection refused"))

		_, err := newTestService(repo, testContactConfig(), zap.NewNop()).Submit(context.Background(), validRequest(), dto.ClientMeta{})
		apiErr := common.AsAPIError(err)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, MsgSendFailed, apiErr.Message)
	})
}

func TestService_GetSubmission(t *testing.T) {
	t.Run("includes delivery status", func(t *testing.T) {
		jobID := uint(12)
		repo := new(mocks.SubmissionRepoMock)
		repo.On("Get", mock.Anything, "abc").Return(&models.Submission{
			ID:    "abc",
			Name:  "Amira",
			JobID: &jobID,
			Job:   &models.Job{ID: 12, Status: config.JobStatusFailed, Attempts: 4, Error: "smtp unavailable"},
		}, nil)

		sub, err := newTestService(repo, testContactConfig(), zap.NewNop()).GetSubmission(context.Background(), "abc")
		require.NoError(t, err)
		require.NotNil(t, sub.Delivery)
		assert.Equal(t, uint(12), sub.Delivery.JobID)
		assert.Equal(t, "failed", sub.Delivery.Status)
		assert.Equal(t, 4, sub.Delivery.Attempts)
		assert.Equal(t, "smtp unavailable", sub.Delivery.Error)
	})

	tests := []struct {
		name       string
		repoErr    error
		wantStatus int
	}{
		{name: "not found", repoErr: fmt.Errorf("get submission x: %w", ErrSubmissionNotFound), wantStatus: http.StatusNotFound},
		{name: "timeout", repoErr: context.DeadlineExceeded, wantStatus: http.StatusRequestTimeout},
		{name: "database error", repoErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.SubmissionRepoMock)
			repo.On("Get", mock.Anything, "x").Return(nil, tt.repoErr)

			_, err := newTestService(repo, testContactConfig(), zap.NewNop()).GetSubmission(context.Background(), "x")
			assert.Equal(t, tt.wantStatus, common.AsAPIError(err).Status)
		})
	}
}

func TestService_ListSubmissions(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{name: "defaults", limit: 0, offset: 0, wantLimit: DefaultListLimit, wantOffset: 0},
		{name: "clamped", limit: 1000, offset: 20, wantLimit: MaxListLimit, wantOffset: 20},
		{name: "explicit", limit: 5, offset: 10, wantLimit: 5, wantOffset: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.SubmissionRepoMock)
			repo.On("List", mock.Anything, tt.wantLimit, tt.wantOffset).
				Return([]models.Submission{{ID: "a"}, {ID: "b"}}, nil)

			subs, err := newTestService(repo, testContactConfig(), zap.NewNop()).ListSubmissions(context.Background(), tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, subs, 2)
			assert.Nil(t, subs[0].Delivery)
			repo.AssertExpectations(t)
		})
	}
}
