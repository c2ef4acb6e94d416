package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/internal/mailer"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// HandlerFunc executes one job payload. The returned value is stored as
// the job result.
type HandlerFunc func(ctx context.Context, payload datatypes.JSON) (any, error)

// Registry maps a job type to its handler.
type Registry map[string]HandlerFunc

// NewRegistry wires the handlers for every job type the service enqueues.
func NewRegistry(sender mailer.Sender, webhookClient *retryablehttp.Client, log *zap.Logger) Registry {
	return Registry{
		config.JobTypeSendEmail:   SendEmailHandler(sender, log),
		config.JobTypeSendWebhook: SendWebhookHandler(webhookClient, log),
	}
}

// SendEmailHandler delivers a contact notification through sender.
func SendEmailHandler(sender mailer.Sender, log *zap.Logger) HandlerFunc {
	return func(ctx context.Context, payload datatypes.JSON) (any, error) {
		var email dto.SendEmailPayload
		if err := json.Unmarshal(payload, &email); err != nil {
			return nil, fmt.Errorf("unmarshal email payload: %w", err)
		}

		err := sender.Send(ctx, mailer.Message{
			To:          []string{email.To},
			ReplyTo:     email.ReplyTo,
			ReplyToName: email.ReplyToName,
			Subject:     email.Subject,
			HTMLBody:    email.HTMLBody,
			TextBody:    email.TextBody,
		})
		if err != nil {
			return nil, err
		}

		log.Info("contact email delivered",
			zap.String("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("submission_id", email.SubmissionID),
		)

		return map[string]any{
			"to":            email.To,
			"subject":       email.Subject,
			"submission_id": email.SubmissionID,
			"sent_at":       time.Now().UTC().Format(time.RFC3339),
		}, nil
	}
}

// NewWebhookClient returns the HTTP client used for webhook deliveries.
// Its own retries cover transient network errors inside one job attempt;
// the queue handles anything longer.
func NewWebhookClient(retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

const maxWebhookResponseBytes = 4096

// SendWebhookHandler posts the stored body to the configured URL.
func SendWebhookHandler(client *retryablehttp.Client, log *zap.Logger) HandlerFunc {
	return func(ctx context.Context, payload datatypes.JSON) (any, error) {
		var webhook dto.SendWebhookPayload
		if err := json.Unmarshal(payload, &webhook); err != nil {
			return nil, fmt.Errorf("unmarshal webhook payload: %w", err)
		}

		if webhook.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(webhook.Timeout)*time.Second)
			defer cancel()
		}

		req, err := retryablehttp.NewRequestWithContext(ctx, webhook.Method, webhook.URL, []byte(webhook.Body))
		if err != nil {
			return nil, fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range webhook.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("webhook request: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseBytes))

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}

		log.Info("webhook delivered", zap.String("url", webhook.URL), zap.Int("status", resp.StatusCode))

		return map[string]any{
			"url":          webhook.URL,
			"method":       webhook.Method,
			"status_code":  resp.StatusCode,
			"response":     string(bytes.TrimSpace(body)),
			"delivered_at": time.Now().UTC().Format(time.RFC3339),
		}, nil
	}
}
