package export

import (
	"encoding/json"
	"fmt"
	"time"

	"reelsmith-desktop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRecorder persists run snapshots.
type HistoryRecorder interface {
	Save(run Run, logs []LogEntry, job Job) error
}

// GormHistory stores runs in the export_jobs table.
type GormHistory struct {
	db *gorm.DB
}

func NewGormHistory(db *gorm.DB) *GormHistory {
	return &GormHistory{db: db}
}

func (h *GormHistory) Save(run Run, logs []LogEntry, job Job) error {
	messages, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}
	record := models.ExportJob{
		ID:         run.ID,
		TemplateID: job.Settings.TemplateID,
		MediaCount: len(job.Manifest),
		Status:     string(run.Status),
		Progress:   run.Progress,
		Stage:      lastStage(run),
		Messages:   string(messages),
		Error:      run.Error,
		FinishedAt: run.FinishedAt,
	}
	if run.StartedAt != nil {
		record.StartedAt = *run.StartedAt
	}
	if run.Artifact != nil {
		artifact, err := json.Marshal(run.Artifact)
		if err != nil {
			return fmt.Errorf("encode artifact: %w", err)
		}
		record.Artifact = string(artifact)
	}
	if err := h.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
		return fmt.Errorf("save export job: %w", err)
	}
	return nil
}

// List returns the newest runs first.
func (h *GormHistory) List(limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []models.ExportJob
	if err := h.db.Order("started_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}

// Prune keeps the newest keep runs and deletes the rest.
func (h *GormHistory) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var cutoff []models.ExportJob
	if err := h.db.Order("started_at DESC").Offset(keep).Limit(1).Find(&cutoff).Error; err != nil {
		return 0, fmt.Errorf("find prune cutoff: %w", err)
	}
	if len(cutoff) == 0 {
		return 0, nil
	}
	result := h.db.Where("started_at <= ? AND status <> ?", cutoff[0].StartedAt, string(StatusRunning)).
		Delete(&models.ExportJob{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune export jobs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Entries decodes the stored log of a history record.
func Entries(job models.ExportJob) []LogEntry {
	var logs []LogEntry
	if job.Messages != "" {
		_ = json.Unmarshal([]byte(job.Messages), &logs)
	}
	return logs
}

// Duration reports how long a finished run took.
func Duration(job models.ExportJob) time.Duration {
	if job.FinishedAt == nil {
		return 0
	}
	return job.FinishedAt.Sub(job.StartedAt)
}

func lastStage(run Run) string {
	if run.CurrentStageID != "" {
		return run.CurrentStageID
	}
	if n := len(run.CompletedStageIDs); n > 0 {
		return run.CompletedStageIDs[n-1]
	}
	return ""
}
