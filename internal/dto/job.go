package dto

import (
	"encoding/json"
	"time"

	"github.com/powermaps/contact/internal/config"
)

type JobResponseDTO struct {
	ID          uint             `json:"id"`
	Queue       string           `json:"queue"`
	Type        string           `json:"type"`
	Payload     json.RawMessage  `json:"payload"`
	Status      config.JobStatus `json:"status"`
	Attempts    int              `json:"attempts"`
	MaxRetries  int              `json:"max_retries"`
	Result      json.RawMessage  `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	AvailableAt time.Time        `json:"available_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
