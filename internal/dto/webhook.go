package dto

import (
	"encoding/json"
	"time"
)

// EventHeader carries the event name on every outbound webhook.
const EventHeader = "X-PowerMaps-Event"

// SendWebhookPayload is the stored payload of a send_webhook job. Timeout
// is in seconds.
type SendWebhookPayload struct {
	URL     string            `json:"url" validate:"required,url"`
	Method  string            `json:"method" validate:"required,oneof=POST PUT PATCH"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body" validate:"required"`
	Timeout int               `json:"timeout" validate:"gte=1,lte=30"`
}

// WebhookSubmissionBody is the JSON posted to CONTACT_WEBHOOK_URL.
type WebhookSubmissionBody struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
