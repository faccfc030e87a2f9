// Package scheduler runs recurring housekeeping jobs on cron schedules.
package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/models"
)

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Service handles scheduled job management and execution
type Service struct {
	db        *gorm.DB
	log       *slog.Logger
	cron      *cron.Cron
	jobs      map[string]cron.EntryID // jobID -> cron entry ID
	jobsMu    sync.RWMutex
	artifacts ArtifactPruner
	history   HistoryPruner
	now       func() time.Time
}

// NewService creates a new scheduler service
func NewService(db *gorm.DB, log *slog.Logger, artifacts ArtifactPruner, history HistoryPruner) *Service {
	// Create cron scheduler with seconds support
	c := cron.New(cron.WithSeconds())

	return &Service{
		db:        db,
		log:       log,
		cron:      c,
		jobs:      make(map[string]cron.EntryID),
		artifacts: artifacts,
		history:   history,
		now:       time.Now,
	}
}

// Start starts the cron scheduler and loads enabled jobs from the database
func (s *Service) Start() error {
	s.cron.Start()

	var jobs []models.ScheduledJob
	if err := s.db.Where("enabled = ?", true).Find(&jobs).Error; err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]
		if err := s.scheduleJob(job); err != nil {
			s.log.Warn("failed to schedule job", "name", job.Name, "id", job.ID, "error", err)
		} else {
			s.log.Debug("scheduled job", "name", job.Name, "id", job.ID, "cron", job.Cron)
		}
	}

	s.log.Info("scheduler started", "enabled_jobs", len(jobs))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info("scheduler stopped")
	}
}

// RegisterDefaults upserts the built-in housekeeping jobs.
func (s *Service) RegisterDefaults(artifactCron string, retention time.Duration, historyCron string, keep int) error {
	defaults := []UpsertJobRequest{
		{
			Name:    JobArtifactRetention,
			JobType: models.JobTypeArtifactRetention,
			Cron:    artifactCron,
			Enabled: retention > 0,
			Payload: ArtifactRetentionPayload{MaxAge: retention.String()},
		},
		{
			Name:    JobHistoryPrune,
			JobType: models.JobTypeHistoryPrune,
			Cron:    historyCron,
			Enabled: keep > 0,
			Payload: HistoryPrunePayload{Keep: keep},
		},
	}
	for _, req := range defaults {
		if _, err := s.UpsertJob(req); err != nil {
			return fmt.Errorf("register %s: %w", req.Name, err)
		}
	}
	return nil
}

// ListJobs retrieves all scheduled jobs
func (s *Service) ListJobs() ([]JobListResponse, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("name ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	responses := make([]JobListResponse, len(jobs))
	for i := range jobs {
		responses[i] = toJobListResponse(&jobs[i])
	}
	return responses, nil
}

// UpsertJob creates or updates a scheduled job by name
func (s *Service) UpsertJob(req UpsertJobRequest) (string, error) {
	if req.Name == "" || req.JobType == "" || req.Cron == "" {
		return "", apperr.NewValidation("job", "name, job_type, and cron are required")
	}
	if req.JobType != models.JobTypeArtifactRetention && req.JobType != models.JobTypeHistoryPrune {
		return "", apperr.NewValidation("job_type", "unknown job type %q", req.JobType)
	}

	// Normalize and validate cron expression (convert 5-field to 6-field)
	normalizedCron, err := normalizeCron(req.Cron)
	if err != nil {
		return "", apperr.NewValidation("cron", "%v", err)
	}

	payload, err := encodePayload(req.Payload)
	if err != nil {
		return "", err
	}

	var job models.ScheduledJob
	result := s.db.Where("name = ?", req.Name).First(&job)
	isNew := errors.Is(result.Error, gorm.ErrRecordNotFound)
	if result.Error != nil && !isNew {
		return "", fmt.Errorf("failed to query job: %w", result.Error)
	}
	if isNew {
		job = models.ScheduledJob{ID: uuid.New().String(), Name: req.Name}
	}

	job.JobType = req.JobType
	job.Cron = normalizedCron
	job.Enabled = req.Enabled
	job.Payload = payload

	schedule, err := cronParser.Parse(job.Cron)
	if err != nil {
		return "", fmt.Errorf("failed to parse cron for next run: %w", err)
	}
	nextRun := schedule.Next(s.now())
	job.NextRunAt = &nextRun

	if isNew {
		err = s.db.Create(&job).Error
	} else {
		err = s.db.Save(&job).Error
	}
	if err != nil {
		return "", fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.rescheduleJob(job.ID); err != nil {
		return "", fmt.Errorf("failed to reschedule job: %w", err)
	}
	return job.ID, nil
}

// DeleteJob removes a scheduled job
func (s *Service) DeleteJob(jobID string) error {
	s.unschedule(jobID)

	result := s.db.Delete(&models.ScheduledJob{}, "id = ?", jobID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %q: %w", jobID, apperr.ErrNotFound)
	}
	return nil
}

// RunNow executes a job immediately, by id or name.
func (s *Service) RunNow(idOrName string) error {
	var job models.ScheduledJob
	if err := s.db.Where("id = ? OR name = ?", idOrName, idOrName).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("job %q: %w", idOrName, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to load job: %w", err)
	}
	return s.runJob(&job)
}

// scheduleJob adds a job to the cron scheduler
func (s *Service) scheduleJob(job *models.ScheduledJob) error {
	if !job.Enabled {
		s.unschedule(job.ID)
		return nil
	}

	s.unschedule(job.ID)

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.Cron, func() {
		s.executeJob(jobID)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobsMu.Lock()
	s.jobs[job.ID] = entryID
	s.jobsMu.Unlock()
	return nil
}

func (s *Service) unschedule(jobID string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if entryID, exists := s.jobs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, jobID)
	}
}

// rescheduleJob reloads a job from database and reschedules it
func (s *Service) rescheduleJob(jobID string) error {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.unschedule(jobID)
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}
	return s.scheduleJob(&job)
}

// scheduled reports whether a job currently has a cron entry.
func (s *Service) scheduled(jobID string) bool {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	_, ok := s.jobs[jobID]
	return ok
}

// executeJob runs a scheduled job from the cron goroutine
func (s *Service) executeJob(jobID string) {
	var job models.ScheduledJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		s.log.Error("failed to load scheduled job", "id", jobID, "error", err)
		return
	}
	if err := s.runJob(&job); err != nil {
		s.log.Error("scheduled job failed", "name", job.Name, "error", err)
	}
}

func (s *Service) runJob(job *models.ScheduledJob) error {
	s.log.Info("executing scheduled job", "name", job.Name, "type", job.JobType)

	now := s.now()
	job.LastRunAt = &now
	if schedule, err := cronParser.Parse(job.Cron); err != nil {
		s.log.Warn("failed to parse cron for next run", "name", job.Name, "error", err)
	} else {
		nextRun := schedule.Next(now)
		job.NextRunAt = &nextRun
	}
	if err := s.db.Save(job).Error; err != nil {
		s.log.Warn("failed to update job run times", "name", job.Name, "error", err)
	}

	switch job.JobType {
	case models.JobTypeArtifactRetention:
		return s.runArtifactRetention(job.Payload)
	case models.JobTypeHistoryPrune:
		return s.runHistoryPrune(job.Payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}
}

func (s *Service) runArtifactRetention(payload string) error {
	var p ArtifactRetentionPayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	maxAge, err := time.ParseDuration(p.MaxAge)
	if err != nil || maxAge <= 0 {
		return fmt.Errorf("invalid max_age %q", p.MaxAge)
	}
	removed, err := s.artifacts.PruneOlderThan(maxAge, s.now())
	if err != nil {
		return fmt.Errorf("artifact retention: %w", err)
	}
	s.log.Info("artifact retention completed", "removed", removed, "max_age", maxAge)
	return nil
}

func (s *Service) runHistoryPrune(payload string) error {
	var p HistoryPrunePayload
	if err := decodePayload(payload, &p); err != nil {
		return err
	}
	if p.Keep <= 0 {
		return fmt.Errorf("invalid keep %d", p.Keep)
	}
	removed, err := s.history.Prune(p.Keep)
	if err != nil {
		return fmt.Errorf("history prune: %w", err)
	}
	s.log.Info("history prune completed", "removed", removed, "keep", p.Keep)
	return nil
}

func encodePayload(payload interface{}) (string, error) {
	switch p := payload.(type) {
	case nil:
		return "", nil
	case string:
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("failed to marshal payload: %w", err)
		}
		return string(data), nil
	}
}

func decodePayload(payload string, dst any) error {
	if payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return fmt.Errorf("failed to parse job payload: %w", err)
	}
	return nil
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)

	if strings.HasPrefix(cronExpr, "@") {
		if _, err := cronParser.Parse(cronExpr); err != nil {
			return "", fmt.Errorf("invalid cron descriptor: %w", err)
		}
		return cronExpr, nil
	}

	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		if _, err := cronParser.Parse(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 6-field cron expression: %w", err)
		}
		return cronExpr, nil
	}

	if len(fields) == 5 {
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}

func toJobListResponse(job *models.ScheduledJob) JobListResponse {
	resp := JobListResponse{
		ID:        job.ID,
		Name:      job.Name,
		JobType:   job.JobType,
		Cron:      job.Cron,
		Enabled:   job.Enabled,
		Payload:   job.Payload,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		lastRun := job.LastRunAt.Format(time.RFC3339)
		resp.LastRunAt = &lastRun
	}
	if job.NextRunAt != nil {
		nextRun := job.NextRunAt.Format(time.RFC3339)
		resp.NextRun = &nextRun
	}
	return resp
}
