package models

import (
	"time"

	"github.com/powermaps/contact/internal/config"
	"gorm.io/datatypes"
)

type Job struct {
	ID          uint             `gorm:"primaryKey;autoIncrement"`
	Queue       string           `gorm:"type:varchar(255);not null;index:idx_jobs_claim,priority:1"`
	Type        string           `gorm:"type:varchar(255);not null"`
	Payload     datatypes.JSON   `gorm:"type:jsonb"`
	Status      config.JobStatus `gorm:"type:varchar(50);not null;default:'queued';index:idx_jobs_claim,priority:2"`
	Attempts    int              `gorm:"default:0;not null"`
	MaxRetries  int              `gorm:"not null"`
	Result      datatypes.JSON   `gorm:"type:jsonb"`
	Error       string           `gorm:"type:text"`
	AvailableAt time.Time        `gorm:"not null;index:idx_jobs_claim,priority:3"`
	LockedBy    *uint
	LockedUntil *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
