package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExportJob records one export run for the history view
type ExportJob struct {
	ID          string     `gorm:"primaryKey" json:"id"`                     // run ID
	TemplateID  string     `gorm:"column:template_id" json:"template_id"`
	MediaCount  int        `gorm:"not null;default:0" json:"media_count"`
	Status      string     `gorm:"not null;default:idle;index" json:"status"` // running, completed, cancelled, failed
	Progress    float64    `gorm:"not null;default:0" json:"progress"`        // 0-100
	Stage       string     `json:"stage"`                                     // last stage reached
	Messages    string     `gorm:"type:text" json:"messages"`                 // JSON array of log entries
	Artifact    string     `gorm:"type:text" json:"artifact"`                 // JSON artifact descriptor
	Error       string     `gorm:"type:text" json:"error"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (j *ExportJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (ExportJob) TableName() string {
	return "export_jobs"
}
