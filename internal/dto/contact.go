package dto

import "time"

// ContactRequest is the body of POST /contact.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,contactemail"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ClientMeta is what the handler knows about the sender beyond the form.
type ClientMeta struct {
	RemoteIP  string
	UserAgent string
}

type ContactResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type SubmissionDTO struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Subject   string             `json:"subject"`
	Message   string             `json:"message"`
	RemoteIP  string             `json:"remote_ip,omitempty"`
	UserAgent string             `json:"user_agent,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Delivery  *DeliveryStatusDTO `json:"delivery,omitempty"`
}

// DeliveryStatusDTO summarises the email job behind a submission.
type DeliveryStatusDTO struct {
	JobID    uint   `json:"job_id"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}
