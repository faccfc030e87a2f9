package scheduler

import "time"

// Built-in job names registered at startup.
const (
	JobArtifactRetention = "artifact-retention"
	JobHistoryPrune      = "history-prune"
)

// ArtifactPruner deletes exported artifacts older than maxAge.
type ArtifactPruner interface {
	PruneOlderThan(maxAge time.Duration, now time.Time) (int, error)
}

// HistoryPruner keeps the newest keep export runs.
type HistoryPruner interface {
	Prune(keep int) (int64, error)
}

// JobListResponse represents a scheduled job in list responses
type JobListResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	JobType   string  `json:"job_type"`
	Cron      string  `json:"cron"`
	Enabled   bool    `json:"enabled"`
	Payload   string  `json:"payload"`
	LastRunAt *string `json:"last_run_at"` // ISO 8601 format
	NextRun   *string `json:"next_run"`    // ISO 8601 format
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// UpsertJobRequest represents a request to create or update a scheduled job
type UpsertJobRequest struct {
	Name    string      `json:"name"`
	JobType string      `json:"job_type"` // artifact_retention or history_prune
	Cron    string      `json:"cron"`
	Enabled bool        `json:"enabled"`
	Payload interface{} `json:"payload"` // Can be map, struct or string
}

// ArtifactRetentionPayload configures an artifact_retention job.
type ArtifactRetentionPayload struct {
	MaxAge string `json:"max_age"` // time.ParseDuration syntax
}

// HistoryPrunePayload configures a history_prune job.
type HistoryPrunePayload struct {
	Keep int `json:"keep"`
}
