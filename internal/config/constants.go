package config

type JobStatus string

const (
	QueueDefault  = "default"
	QueueEmail    = "email"
	QueueWebhooks = "webhooks"

	JobTypeSendEmail   = "send_email"
	JobTypeSendWebhook = "send_webhook"

	DefaultMaxRetries = 3
)

var (
	AllowedQueues                = []string{QueueDefault, QueueEmail, QueueWebhooks}
	AllowedJobTypes              = []string{JobTypeSendEmail, JobTypeSendWebhook}
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCompleted JobStatus = "completed"
)
