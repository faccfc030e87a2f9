package export

import (
	"errors"
	"time"
)

// ErrExportAlreadyRunning is returned when starting a second active export.
var ErrExportAlreadyRunning = errors.New("export already running")

// ErrNoRunningExport is returned when cancel is requested while not running.
var ErrNoRunningExport = errors.New("no running export")

// ErrArtifactNotFound is returned for unknown download handles.
var ErrArtifactNotFound = errors.New("artifact not found")

// Stage is one named step of the export pipeline.
type Stage struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// DefaultStages returns the eight export stages in execution order.
func DefaultStages() []Stage {
	return []Stage{
		{ID: "initialization", Name: "Initializing ffmpeg.wasm...", Duration: 2000 * time.Millisecond},
		{ID: "media_processing", Name: "Processing media files...", Duration: 3000 * time.Millisecond},
		{ID: "ken_burns", Name: "Applying Ken Burns effects...", Duration: 4000 * time.Millisecond},
		{ID: "video_trimming", Name: "Trimming and scaling videos...", Duration: 3500 * time.Millisecond},
		{ID: "transitions", Name: "Adding crossfade transitions...", Duration: 2500 * time.Millisecond},
		{ID: "watermark", Name: "Adding watermark overlay...", Duration: 2000 * time.Millisecond},
		{ID: "audio_processing", Name: "Processing background audio...", Duration: 3000 * time.Millisecond},
		{ID: "final_encoding", Name: "Final video encoding...", Duration: 5000 * time.Millisecond},
	}
}

// Status is the lifecycle state of an export run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// LogType is the severity of a log entry.
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

// LogEntry is one line of the export log shown to the user.
type LogEntry struct {
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Settings configures one export run.
type Settings struct {
	TemplateID        string  `json:"template"`
	OutputFormat      string  `json:"outputFormat"`
	Codec             string  `json:"codec"`
	FrameRate         int     `json:"fps"`
	CRF               int     `json:"crf"`
	PixelFormat       string  `json:"pixelFormat"`
	AudioCodec        string  `json:"audioCodec"`
	WatermarkText     string  `json:"watermark"`
	WatermarkPosition string  `json:"watermarkPosition"`
	WatermarkOpacity  float64 `json:"watermarkOpacity"`
	BackgroundMusic   bool    `json:"backgroundMusic"`
	MusicVolume       float64 `json:"musicVolume"`
	MusicLoop         bool    `json:"musicLoop"`
}

// MediaRef is one entry of the media manifest handed to the pipeline.
type MediaRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// Job is the immutable input of a run.
type Job struct {
	Settings Settings   `json:"settings"`
	Manifest []MediaRef `json:"manifest"`
}

// ArtifactMetadata describes what was applied to an artifact.
type ArtifactMetadata struct {
	TemplateID             string    `json:"templateId"`
	MediaCount             int       `json:"mediaCount"`
	Resolution             string    `json:"resolution"`
	FrameRate              int       `json:"fps"`
	WatermarkText          string    `json:"watermarkText"`
	BackgroundMusicApplied bool      `json:"backgroundMusicApplied"`
	CompletedAt            time.Time `json:"completedAt"`
}

// Artifact is the downloadable result of a completed run.
type Artifact struct {
	Filename       string           `json:"filename"`
	DownloadHandle string           `json:"downloadHandle"`
	Size           int64            `json:"size"`
	MimeType       string           `json:"mimeType"`
	Metadata       ArtifactMetadata `json:"metadata"`
}

// Run is a snapshot of the current export.
type Run struct {
	ID                     string     `json:"id"`
	Status                 Status     `json:"status"`
	Progress               float64    `json:"progress"`
	CurrentStageID         string     `json:"currentStage"`
	CompletedStageIDs      []string   `json:"completedStages"`
	EstimatedTimeRemaining string     `json:"estimatedTime"`
	Artifact               *Artifact  `json:"artifact,omitempty"`
	StartedAt              *time.Time `json:"startedAt,omitempty"`
	FinishedAt             *time.Time `json:"finishedAt,omitempty"`
	Error                  string     `json:"error,omitempty"`
}

func (r Run) clone() Run {
	r.CompletedStageIDs = append([]string(nil), r.CompletedStageIDs...)
	if r.Artifact != nil {
		a := *r.Artifact
		r.Artifact = &a
	}
	return r
}

// EventType classifies pipeline events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventLog      EventType = "log"
	EventStatus   EventType = "status"
)

// Event is pushed to observers for every state change.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"runId"`
	Run   Run       `json:"run"`
	Log   *LogEntry `json:"log,omitempty"`
}

// State is the full view of the pipeline for the user interface.
type State struct {
	Run    Run        `json:"run"`
	Logs   []LogEntry `json:"logs"`
	Stages []Stage    `json:"stages"`
}
