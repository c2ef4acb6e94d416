package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/job"
	"github.com/powermaps/contact/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	WebhookEvent = "contact.submitted"

	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service struct {
	repo SubmissionRepoInterface
	cfg  config.ContactConfig
	log  *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo SubmissionRepoInterface, cfg config.ContactConfig, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

var _ ServiceInterface = (*Service)(nil)

// Submit validates req, records it and enqueues its deliveries. Anything
// other than a validation error is reported as MsgSendFailed with 500.
func (s *Service) Submit(ctx context.Context, req *dto.ContactRequest, meta dto.ClientMeta) (*dto.ContactResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := &models.Submission{
		ID:        s.newID(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		RemoteIP:  meta.RemoteIP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}

	s.log.Info("contact form submission",
		zap.String("id", sub.ID),
		zap.String("name", sub.Name),
		zap.String("email", sub.Email),
		zap.String("subject", sub.Subject),
		zap.String("message", sub.Message),
		zap.Time("timestamp", now),
	)

	emailJob, err := s.emailJob(sub, req)
	if err != nil {
		return nil, s.sendFailed("build email job", err)
	}

	var extra []*models.Job
	if s.cfg.WebhookURL != "" {
		webhookJob, err := s.webhookJob(sub)
		if err != nil {
			return nil, s.sendFailed("build webhook job", err)
		}
		extra = append(extra, webhookJob)
	}

	if err := s.repo.CreateWithJobs(ctx, sub, emailJob, extra...); err != nil {
		return nil, s.sendFailed("store submission", err)
	}

	return &dto.ContactResponse{ID: sub.ID, Message: MsgSent}, nil
}

func (s *Service) sendFailed(step string, err error) error {
	s.log.Error("contact submission failed", zap.String("step", step), zap.Error(err))
	return common.Errf(http.StatusInternalServerError, "%s", MsgSendFailed)
}

func (s *Service) emailJob(sub *models.Submission, req *dto.ContactRequest) (*models.Job, error) {
	html, text, err := RenderNotification(sub.ID, req, sub.CreatedAt)
	if err != nil {
		return nil, err
	}

	return newJob(config.QueueEmail, config.JobTypeSendEmail, s.cfg.MaxRetries, dto.SendEmailPayload{
		To:           s.cfg.Recipient,
		ReplyTo:      sub.Email,
		ReplyToName:  sub.Name,
		Subject:      NotificationSubject(sub.Subject),
		HTMLBody:     html,
		TextBody:     text,
		SubmissionID: sub.ID,
	})
}

func (s *Service) webhookJob(sub *models.Submission) (*models.Job, error) {
	body, err := json.Marshal(dto.WebhookSubmissionBody{
		Event:     WebhookEvent,
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Message:   sub.Message,
		CreatedAt: sub.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	timeout := int(s.cfg.WebhookTimeout / time.Second)
	timeout = min(max(timeout, 1), 30)

	return newJob(config.QueueWebhooks, config.JobTypeSendWebhook, s.cfg.MaxRetries, dto.SendWebhookPayload{
		URL:     s.cfg.WebhookURL,
		Method:  http.MethodPost,
		Headers: map[string]string{dto.EventHeader: WebhookEvent},
		Body:    body,
		Timeout: timeout,
	})
}

func newJob(queue, jobType string, maxRetries int, payload any) (*models.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := job.ValidatePayload(jobType, raw); err != nil {
		return nil, err
	}

	return &models.Job{
		Queue:      queue,
		Type:       jobType,
		Payload:    datatypes.JSON(raw),
		Status:     config.JobStatusQueued,
		MaxRetries: maxRetries,
	}, nil
}

// GetSubmission returns one submission with the state of its email job.
func (s *Service) GetSubmission(ctx context.Context, id string) (*dto.SubmissionDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		case errors.Is(err, ErrSubmissionNotFound):
			return nil, common.Errf(http.StatusNotFound, "submission not found")
		default:
			return nil, common.Errf(http.StatusInternalServerError, "failed to get submission")
		}
	}

	resp := toDTO(sub)
	return &resp, nil
}

// ListSubmissions returns submissions newest first. limit is clamped to
// [1, MaxListLimit]; zero selects DefaultListLimit.
func (s *Service) ListSubmissions(ctx context.Context, limit, offset int) ([]dto.SubmissionDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	subs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		return nil, common.Errf(http.StatusInternalServerError, "failed to list submissions")
	}

	dtos := make([]dto.SubmissionDTO, len(subs))
	for i := range subs {
		dtos[i] = toDTO(&subs[i])
	}
	return dtos, nil
}

func toDTO(sub *models.Submission) dto.SubmissionDTO {
	out := dto.SubmissionDTO{
		ID:        sub.ID,
		Name:      sub.Name,
		Email:     sub.Email,
		Subject:   sub.Subject,
		Message:   sub.Message,
		RemoteIP:  sub.RemoteIP,
		UserAgent: sub.UserAgent,
		CreatedAt: sub.CreatedAt,
	}
	if sub.Job != nil {
		out.Delivery = &dto.DeliveryStatusDTO{
			JobID:    sub.Job.ID,
			Status:   string(sub.Job.Status),
			Attempts: sub.Job.Attempts,
			Error:    sub.Job.Error,
		}
	}
	return out
}
