package dto

type SendEmailPayload struct {
	To          string `json:"to" validate:"required,email"`
	ReplyTo     string `json:"reply_to,omitempty"`
	ReplyToName string `json:"reply_to_name,omitempty"`
	Subject     string `json:"subject" validate:"required"`
	HTMLBody    string `json:"html_body" validate:"required"`
	TextBody    string `json:"text_body,omitempty"`

	SubmissionID string `json:"submission_id,omitempty"`
}
