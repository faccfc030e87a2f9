// Package export runs the staged video export pipeline.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/eventbus"

	"github.com/google/uuid"
)

const (
	minutesPerStage = 2.5
	artifactMime    = "video/mp4"
	outputRes       = "1080x1920"
)

var placeholderVideo = []byte("mock video data")

// Notifier receives user-facing outcome messages.
type Notifier interface {
	Success(message string) int64
	Warning(message string) int64
	Error(message string) int64
}

// Option customizes a Service.
type Option func(*Service)

// WithStages replaces the default stage list. An empty list keeps the
// defaults.
func WithStages(stages []Stage) Option {
	return func(s *Service) {
		if len(stages) == 0 {
			return
		}
		s.stages = append([]Stage(nil), stages...)
	}
}

// WithWorker replaces the simulated worker.
func WithWorker(w StageWorker) Option {
	return func(s *Service) { s.worker = w }
}

// WithHistory persists every run snapshot.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// WithNotifier reports completion, cancellation and failure.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns the single export run. Observers run on the goroutine that
// caused the change and must not call back into the Service.
type Service struct {
	log       *slog.Logger
	stages    []Stage
	worker    StageWorker
	artifacts ArtifactStore
	history   HistoryRecorder
	notifier  Notifier
	now       func() time.Time
	bus       *eventbus.Bus[Event]
	workers   sync.WaitGroup

	// emitMu serializes state changes with their publication so observers
	// see events in mutation order.
	emitMu sync.Mutex

	mu         sync.RWMutex
	run        Run
	logs       []LogEntry
	job        Job
	generation int64
	cancel     context.CancelFunc
	lastToken  int64
	lastErr    error
}

// NewService creates an idle pipeline writing artifacts to artifacts.
func NewService(artifacts ArtifactStore, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		log:       log,
		stages:    DefaultStages(),
		worker:    SimulatedWorker{},
		artifacts: artifacts,
		now:       time.Now,
		bus:       eventbus.New[Event](1000),
		run:       Run{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateManifest rejects an empty media manifest.
func ValidateManifest(manifest []MediaRef) error {
	if len(manifest) == 0 {
		return apperr.NewValidation("media", "Please upload at least one media file before continuing")
	}
	return nil
}

// Stages returns the stage list in execution order.
func (s *Service) Stages() []Stage {
	return append([]Stage(nil), s.stages...)
}

// Start begins a new run. The run outlives ctx's cancellation; use Cancel to
// stop it.
func (s *Service) Start(ctx context.Context, settings Settings, manifest []MediaRef) (string, error) {
	if err := ValidateManifest(manifest); err != nil {
		return "", err
	}

	s.emitMu.Lock()
	s.mu.Lock()
	if s.run.Status == StatusRunning {
		s.mu.Unlock()
		s.emitMu.Unlock()
		return "", ErrExportAlreadyRunning
	}

	job := Job{Settings: settings, Manifest: append([]MediaRef(nil), manifest...)}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	startedAt := s.now()

	s.generation++
	gen := s.generation
	s.job = job
	s.cancel = cancel
	s.lastErr = nil
	s.logs = nil
	s.run = Run{
		ID:                     uuid.New().String(),
		Status:                 StatusRunning,
		CompletedStageIDs:      []string{},
		EstimatedTimeRemaining: estimate(len(s.stages)),
		StartedAt:              &startedAt,
	}
	entry := s.appendLog(LogInfo, "Starting video export process...")
	events := []Event{
		s.event(EventStatus, nil),
		s.event(EventLog, &entry),
	}
	runID := s.run.ID
	snapshot, logs := s.run.clone(), s.copyLogs()
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()

	s.log.Info("export started", "run_id", runID, "template", settings.TemplateID, "media", len(manifest))
	s.record(snapshot, logs, job)

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		s.execute(runCtx, gen, job)
	}()
	return runID, nil
}

// Wait blocks until every run goroutine has returned, including the final
// history write.
func (s *Service) Wait() {
	s.workers.Wait()
}

// Cancel stops the running export.
func (s *Service) Cancel() error {
	s.emitMu.Lock()
	s.mu.Lock()
	if s.run.Status != StatusRunning {
		s.mu.Unlock()
		s.emitMu.Unlock()
		return ErrNoRunningExport
	}

	finishedAt := s.now()
	s.run.Status = StatusCancelled
	s.run.CurrentStageID = ""
	s.run.EstimatedTimeRemaining = ""
	s.run.FinishedAt = &finishedAt
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	entry := s.appendLog(LogWarning, "Export cancelled by user")
	events := []Event{
		s.event(EventLog, &entry),
		s.event(EventStatus, nil),
	}
	snapshot, logs, job := s.run.clone(), s.copyLogs(), s.job
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()

	s.log.Info("export cancelled", "run_id", snapshot.ID, "progress", snapshot.Progress)
	if s.notifier != nil {
		s.notifier.Warning("Export cancelled")
	}
	s.record(snapshot, logs, job)
	return nil
}

// Retry returns a finished run to idle so a new export can start.
func (s *Service) Retry() error {
	s.emitMu.Lock()
	s.mu.Lock()
	if s.run.Status == StatusRunning {
		s.mu.Unlock()
		s.emitMu.Unlock()
		return ErrExportAlreadyRunning
	}
	s.run = Run{Status: StatusIdle, CompletedStageIDs: []string{}}
	s.logs = nil
	s.lastErr = nil
	events := []Event{s.event(EventStatus, nil)}
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()
	return nil
}

// Snapshot returns the current run.
func (s *Service) Snapshot() Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run.clone()
}

// Logs returns the log of the current run.
func (s *Service) Logs() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLogs()
}

// State returns the run, its log and the stage list.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Run: s.run.clone(), Logs: s.copyLogs(), Stages: s.Stages()}
}

// Err returns the failure of the last run, if it failed.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Artifact returns the artifact of a completed run, or nil.
func (s *Service) Artifact() *Artifact {
	return s.Snapshot().Artifact
}

// Download returns the bytes behind a download handle and logs it.
func (s *Service) Download(handle string) (Artifact, []byte, error) {
	s.mu.RLock()
	current := s.run.Artifact
	s.mu.RUnlock()
	if current == nil || current.DownloadHandle != handle {
		return Artifact{}, nil, ErrArtifactNotFound
	}

	data, err := s.artifacts.Open(handle)
	if err != nil {
		return Artifact{}, nil, err
	}

	s.emitMu.Lock()
	s.mu.Lock()
	entry := s.appendLog(LogInfo, "Downloaded: "+current.Filename)
	events := []Event{s.event(EventLog, &entry)}
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()

	return *current, data, nil
}

// Subscribe registers an observer for pipeline events.
func (s *Service) Subscribe(fn func(eventbus.Envelope[Event])) func() {
	return s.bus.Subscribe(fn)
}

// EventsSince returns buffered events newer than seq.
func (s *Service) EventsSince(seq int64) []eventbus.Envelope[Event] {
	return s.bus.Since(seq)
}

func (s *Service) execute(ctx context.Context, gen int64, job Job) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			s.fail(gen, current, fmt.Errorf("panic: %v", r))
		}
	}()

	last := len(s.stages) - 1
	for i, stage := range s.stages {
		current = stage.ID
		if !s.beginStage(gen, stage, job.Settings) {
			return
		}

		err := s.worker.Run(ctx, stage, job, func(fraction float64) {
			s.advance(gen, i, fraction)
		})
		if err != nil {
			s.fail(gen, stage.ID, err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		if i == last {
			s.finish(gen, stage, job)
			return
		}
		if !s.completeStage(gen, i, stage, job.Settings) {
			return
		}
	}
}

func (s *Service) beginStage(gen int64, stage Stage, settings Settings) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.activeLocked(gen) {
		s.mu.Unlock()
		return false
	}
	s.run.CurrentStageID = stage.ID
	entry := s.appendLog(LogInfo, stageLabel(stage, settings))
	events := []Event{s.event(EventLog, &entry)}
	s.mu.Unlock()

	s.publish(events)
	s.log.Debug("export stage started", "stage", stage.ID)
	return true
}

func (s *Service) advance(gen int64, index int, fraction float64) {
	if fraction >= 1 {
		return
	}
	fraction = math.Max(fraction, 0)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.activeLocked(gen) {
		s.mu.Unlock()
		return
	}
	step := 100 / float64(len(s.stages))
	end := roundProgress(float64(index+1) * step)
	progress := floorProgress(float64(index)*step + fraction*step)
	if progress >= end {
		progress = roundProgress(end - 0.01)
	}
	if progress <= s.run.Progress {
		s.mu.Unlock()
		return
	}
	s.run.Progress = progress
	events := []Event{s.event(EventProgress, nil)}
	s.mu.Unlock()

	s.publish(events)
}

func (s *Service) completeStage(gen int64, index int, stage Stage, settings Settings) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if !s.activeLocked(gen) {
		s.mu.Unlock()
		return false
	}
	s.run.CompletedStageIDs = append(s.run.CompletedStageIDs, stage.ID)
	s.run.Progress = roundProgress(float64(index+1) * 100 / float64(len(s.stages)))
	s.run.EstimatedTimeRemaining = estimate(len(s.stages) - (index + 1))
	entry := s.appendLog(LogSuccess, stageLabel(stage, settings)+" completed")
	events := []Event{
		s.event(EventProgress, nil),
		s.event(EventLog, &entry),
	}
	s.mu.Unlock()

	s.publish(events)
	return true
}

func (s *Service) finish(gen int64, stage Stage, job Job) {
	filename := fmt.Sprintf("reel_%d.mp4", s.nextToken())
	handle, size, err := s.artifacts.Save(filename, placeholderVideo)
	if err != nil {
		s.fail(gen, stage.ID, fmt.Errorf("save artifact: %w", err))
		return
	}

	s.emitMu.Lock()
	s.mu.Lock()
	if !s.activeLocked(gen) {
		s.mu.Unlock()
		s.emitMu.Unlock()
		// Cancelled while the artifact was being written.
		_ = s.artifacts.Remove(handle)
		return
	}

	finishedAt := s.now()
	watermark := job.Settings.WatermarkText
	s.run.CompletedStageIDs = append(s.run.CompletedStageIDs, stage.ID)
	s.run.Progress = 100
	s.run.Status = StatusCompleted
	s.run.CurrentStageID = ""
	s.run.EstimatedTimeRemaining = ""
	s.run.FinishedAt = &finishedAt
	s.run.Artifact = &Artifact{
		Filename:       filename,
		DownloadHandle: handle,
		Size:           size,
		MimeType:       artifactMime,
		Metadata: ArtifactMetadata{
			TemplateID:             job.Settings.TemplateID,
			MediaCount:             len(job.Manifest),
			Resolution:             outputRes,
			FrameRate:              job.Settings.FrameRate,
			WatermarkText:          watermark,
			BackgroundMusicApplied: job.Settings.BackgroundMusic,
			CompletedAt:            finishedAt,
		},
	}
	s.cancel = nil
	stageEntry := s.appendLog(LogSuccess, stageLabel(stage, job.Settings)+" completed")
	doneEntry := s.appendLog(LogSuccess, "Video export completed successfully!")
	events := []Event{
		s.event(EventProgress, nil),
		s.event(EventLog, &stageEntry),
		s.event(EventLog, &doneEntry),
		s.event(EventStatus, nil),
	}
	snapshot, logs := s.run.clone(), s.copyLogs()
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()

	s.log.Info("export completed", "run_id", snapshot.ID, "artifact", filename, "size", size)
	if s.notifier != nil {
		s.notifier.Success("Video exported successfully!")
	}
	s.record(snapshot, logs, job)
}

func (s *Service) fail(gen int64, stageID string, cause error) {
	s.emitMu.Lock()
	s.mu.Lock()
	if !s.activeLocked(gen) {
		s.mu.Unlock()
		s.emitMu.Unlock()
		return
	}

	finishedAt := s.now()
	pErr := &apperr.PipelineError{Stage: stageID, Message: cause.Error(), Err: cause}
	s.run.Status = StatusFailed
	s.run.Error = cause.Error()
	s.run.CurrentStageID = ""
	s.run.EstimatedTimeRemaining = ""
	s.run.FinishedAt = &finishedAt
	s.lastErr = pErr
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	entry := s.appendLog(LogError, "Export failed: "+cause.Error())
	events := []Event{
		s.event(EventLog, &entry),
		s.event(EventStatus, nil),
	}
	snapshot, logs, job := s.run.clone(), s.copyLogs(), s.job
	s.mu.Unlock()
	s.publish(events)
	s.emitMu.Unlock()

	s.log.Error("export failed", "run_id", snapshot.ID, "stage", stageID, "error", cause)
	if s.notifier != nil {
		s.notifier.Error(pErr.UserMessage())
	}
	s.record(snapshot, logs, job)
}

// activeLocked reports whether gen is still the running generation.
func (s *Service) activeLocked(gen int64) bool {
	return s.generation == gen && s.run.Status == StatusRunning
}

func (s *Service) appendLog(kind LogType, message string) LogEntry {
	entry := LogEntry{Type: kind, Message: message, Timestamp: s.now()}
	s.logs = append(s.logs, entry)
	return entry
}

func (s *Service) copyLogs() []LogEntry {
	return append([]LogEntry(nil), s.logs...)
}

func (s *Service) event(kind EventType, entry *LogEntry) Event {
	return Event{Type: kind, RunID: s.run.ID, Run: s.run.clone(), Log: entry}
}

func (s *Service) publish(events []Event) {
	for _, ev := range events {
		s.bus.Publish(ev)
	}
}

func (s *Service) record(run Run, logs []LogEntry, job Job) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(run, logs, job); err != nil {
		s.log.Warn("failed to record export history", "run_id", run.ID, "error", err)
	}
}

// nextToken returns unix milliseconds, bumped to stay strictly increasing.
func (s *Service) nextToken() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.now().UnixMilli()
	if token <= s.lastToken {
		token = s.lastToken + 1
	}
	s.lastToken = token
	return token
}

// stageLabel names a stage, reflecting effects that are switched off.
func stageLabel(stage Stage, settings Settings) string {
	switch stage.ID {
	case "watermark":
		if strings.TrimSpace(settings.WatermarkText) == "" {
			return "Skipping watermark overlay..."
		}
	case "audio_processing":
		if !settings.BackgroundMusic {
			return "Processing audio (background music disabled)..."
		}
	}
	return stage.Name
}

func estimate(remainingStages int) string {
	minutes := int(math.Ceil(float64(remainingStages) * minutesPerStage))
	return fmt.Sprintf("%d minutes", minutes)
}

func roundProgress(p float64) float64 {
	return math.Round(p*100) / 100
}

// floorProgress keeps in-stage progress below the stage boundary.
func floorProgress(p float64) float64 {
	return math.Floor(p*100) / 100
}
