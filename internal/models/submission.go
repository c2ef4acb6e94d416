package models

import "time"

// Submission is a stored contact form entry. JobID points at the email
// job that delivers it.
type Submission struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text;not null"`
	Subject   string    `gorm:"type:text;not null"`
	Message   string    `gorm:"type:text;not null"`
	RemoteIP  string    `gorm:"type:varchar(64)"`
	UserAgent string    `gorm:"type:text"`
	JobID     *uint     `gorm:"index"`
	Job       *Job      `gorm:"foreignKey:JobID"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
