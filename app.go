package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"reelsmith-desktop/internal/bootstrap"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/eventbus"
	"reelsmith-desktop/internal/models"
	"reelsmith-desktop/internal/notify"
	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/services/export"
	"reelsmith-desktop/internal/services/ideas"
	"reelsmith-desktop/internal/services/media"
	"reelsmith-desktop/internal/services/scheduler"
	"reelsmith-desktop/internal/services/settings"
	"reelsmith-desktop/internal/services/templates"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// Runtime event names pushed to the frontend.
const (
	eventExport         = "export:event"
	eventNotification   = "notification"
	eventUploadProgress = "media:upload-progress"
)

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Photos and videos (JPG, PNG, MP4, MOV)",
		Pattern:     "*.jpg;*.jpeg;*.png;*.mp4;*.mov",
	},
}

var settingsDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Settings files",
		Pattern:     "*.json;*.yaml;*.yml",
	},
}

// App struct - main application state
type App struct {
	svc       *bootstrap.Services
	closeLogs func() error

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe []func()
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	cfg := config.Load()
	logger, closeLogs := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	logger.Info("Application starting up...")

	svc, err := bootstrap.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	if err := svc.StartBackground(); err != nil {
		logger.Warn("failed to start scheduler", "error", err)
	}

	a.mu.Lock()
	a.ctx = ctx
	a.svc = svc
	a.closeLogs = closeLogs
	a.unsubscribe = []func(){
		svc.Export.Subscribe(func(env eventbus.Envelope[export.Event]) {
			a.emit(eventExport, env)
		}),
		svc.Notify.Subscribe(func(env eventbus.Envelope[notify.Event]) {
			a.emit(eventNotification, env)
		}),
	}
	a.mu.Unlock()

	logger.Info("Startup complete", "data_dir", cfg.DataDir, "provider", cfg.LLMProvider)
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.ctx = nil
	a.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	if a.svc != nil {
		a.svc.Log.Info("Application shutting down...")
		if err := a.svc.Close(); err != nil {
			log.Printf("Error closing services: %v", err)
		}
	}
	if a.closeLogs != nil {
		_ = a.closeLogs()
	}
}

func (a *App) emit(name string, payload any) {
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, payload)
	}
}

func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.ctx, nil
}

// ====================================================================================
// WAILS-BOUND METHODS - Exposed to Frontend
// ====================================================================================

// Analysis Methods

// AnalyzeReel sends a Reel URL to the configured AI provider
func (a *App) AnalyzeReel(url string) (analysis.Result, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return analysis.Result{}, err
	}
	return a.svc.AnalyzeReel(ctx, url)
}

// SaveAnalysis stores an analysis result in the ideas collection
func (a *App) SaveAnalysis(result analysis.Result) (ideas.Idea, error) {
	return a.svc.SaveAnalysis(result)
}

// TestAPIKey checks the configured provider credential
func (a *App) TestAPIKey() error {
	ctx, err := a.runtimeContext()
	if err != nil {
		return err
	}
	if err := a.svc.Analysis.TestAPIKey(ctx); err != nil {
		return a.svc.Report(err, "API key test failed")
	}
	a.svc.Notify.Success("API key is valid")
	return nil
}

// SetAPIKey stores the Gemini key encrypted; an empty key removes it
func (a *App) SetAPIKey(key string) error {
	return a.svc.SaveAPIKey(key)
}

// GetAPIKeySource reports whether the key comes from the environment or storage
func (a *App) GetAPIKeySource() string {
	return a.svc.Credentials.Source()
}

// Ideas Methods

// ListIdeas returns saved ideas filtered and sorted by query
func (a *App) ListIdeas(query ideas.Query) ([]ideas.Idea, error) {
	return a.svc.Ideas.Query(query)
}

// GetIdeaTags returns every tag used in the collection
func (a *App) GetIdeaTags() ([]string, error) {
	return a.svc.Ideas.AvailableTags()
}

// DeleteIdea asks for confirmation, then removes the idea
func (a *App) DeleteIdea(id string) error {
	idea, err := a.svc.Ideas.Get(id)
	if err != nil {
		return a.svc.Report(err, "Failed to delete idea")
	}
	a.svc.Notify.Confirm(notify.KindWarning, "Delete idea",
		fmt.Sprintf("Delete the analysis of %s? This cannot be undone.", idea.URL),
		notify.Action{Label: "Delete", Style: "danger", Handler: func() { _ = a.svc.DeleteIdea(id) }},
		notify.Action{Label: "Cancel"},
	)
	return nil
}

// RemakeIdea remembers an idea and moves on to template selection
func (a *App) RemakeIdea(id string) (ideas.Idea, error) {
	return a.svc.RemakeIdea(id)
}

// GetSelectedIdea returns the idea chosen for remake, or nil
func (a *App) GetSelectedIdea() (*ideas.Idea, error) {
	idea, found, err := a.svc.Ideas.Selected()
	if err != nil || !found {
		return nil, err
	}
	return &idea, nil
}

// ExportIdeas writes the collection to a JSON file chosen by the user
func (a *App) ExportIdeas() (string, error) {
	filename, data, err := a.svc.Ideas.ExportJSON()
	if err != nil {
		return "", a.svc.Report(err, "Failed to export ideas")
	}
	path, err := a.saveWithDialog("Export ideas", filename, data)
	if err != nil || path == "" {
		return "", err
	}
	a.svc.Notify.Success("Ideas exported successfully!")
	return path, nil
}

// Template Methods

// ListTemplates returns catalog entries matching filter
func (a *App) ListTemplates(filter templates.Filter) []templates.Template {
	return a.svc.Templates.Filter(filter)
}

// GetTemplateCategories returns the catalog categories
func (a *App) GetTemplateCategories() []string {
	return a.svc.Templates.Categories()
}

// SelectTemplate persists the template for the next export
func (a *App) SelectTemplate(id string) (templates.Template, error) {
	return a.svc.SelectTemplate(id)
}

// GetSelectedTemplate returns the selected or default template
func (a *App) GetSelectedTemplate() (templates.Template, error) {
	return a.svc.Templates.Selected()
}

// Media Methods

// PickMediaFiles opens a native dialog and copies the chosen files into the
// workspace, emitting upload progress per file
func (a *App) PickMediaFiles() ([]media.Item, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}
	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select photos and videos",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	progress := func(name string, percent int) {
		a.emit(eventUploadProgress, map[string]any{"name": name, "percent": percent})
	}
	added := make([]media.Item, 0, len(paths))
	for _, path := range paths {
		item, err := a.svc.Media.AddFile(ctx, strings.TrimSpace(path), progress)
		if err != nil {
			a.svc.Report(err, "Failed to upload "+path)
			continue
		}
		added = append(added, item)
	}
	if len(added) > 0 {
		a.svc.Notify.Success(fmt.Sprintf("%d file(s) uploaded successfully!", len(added)))
	}
	return added, nil
}

// ListMedia returns workspace files in export order
func (a *App) ListMedia() []media.Item {
	return a.svc.Media.Items()
}

// RemoveMedia deletes one workspace file
func (a *App) RemoveMedia(id string) error {
	return a.svc.RemoveMedia(id)
}

// ReorderMedia moves a workspace file from one position to another
func (a *App) ReorderMedia(from, to int) error {
	return a.svc.ReorderMedia(from, to)
}

// ClearMedia asks for confirmation, then empties the workspace
func (a *App) ClearMedia() {
	if len(a.svc.Media.Items()) == 0 {
		return
	}
	a.svc.Notify.Confirm(notify.KindWarning, "Clear all media",
		"Remove every uploaded file from the workspace?",
		notify.Action{Label: "Clear all", Style: "danger", Handler: func() { _ = a.svc.ClearMedia() }},
		notify.Action{Label: "Cancel"},
	)
}

// Settings Methods

// GetSettings returns the current export settings
func (a *App) GetSettings() settings.Settings {
	return a.svc.Settings.Get()
}

// SaveSettings validates and persists settings
func (a *App) SaveSettings(next settings.Settings) (settings.Settings, error) {
	return a.svc.SaveSettings(next)
}

// ResetSettings restores the defaults
func (a *App) ResetSettings() (settings.Settings, error) {
	return a.svc.ResetSettings()
}

// ExportSettings writes the settings as JSON or YAML to a file chosen by the user
func (a *App) ExportSettings(format string) (string, error) {
	doc, err := a.svc.Settings.Export(settings.Format(format))
	if err != nil {
		return "", a.svc.Report(err, "Failed to export settings")
	}
	path, err := a.saveWithDialog("Export settings", doc.Filename, doc.Data)
	if err != nil || path == "" {
		return "", err
	}
	a.svc.Notify.Success("Settings exported successfully!")
	return path, nil
}

// ImportSettings replaces the settings with a file chosen by the user
func (a *App) ImportSettings() (*settings.Settings, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}
	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Import settings",
		Filters: settingsDialogFilter,
	})
	if err != nil || path == "" {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, a.svc.Report(err, "Failed to read settings file")
	}
	imported, err := a.svc.ImportSettings(data, settings.FormatFromFilename(path))
	if err != nil {
		return nil, err
	}
	return &imported, nil
}

// Export Pipeline Methods

// StartExport begins exporting the workspace
func (a *App) StartExport(req bootstrap.ExportRequest) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	return a.svc.StartExport(ctx, req)
}

// CancelExport stops the running export
func (a *App) CancelExport() error {
	return a.svc.CancelExport()
}

// RetryExport resets a finished export
func (a *App) RetryExport() error {
	return a.svc.RetryExport()
}

// GetExportState returns the run, its log and the stage list
func (a *App) GetExportState() export.State {
	return a.svc.Export.State()
}

// GetExportEvents returns buffered pipeline events newer than since
func (a *App) GetExportEvents(since int64) []eventbus.Envelope[export.Event] {
	return a.svc.Export.EventsSince(since)
}

// DownloadArtifact saves the finished video to a file chosen by the user
func (a *App) DownloadArtifact(handle string) (string, error) {
	artifact, data, err := a.svc.Export.Download(handle)
	if err != nil {
		return "", a.svc.Report(err, "The exported video is no longer available")
	}
	path, err := a.saveWithDialog("Save video", artifact.Filename, data)
	if err != nil || path == "" {
		return "", err
	}
	a.svc.Notify.Success("Video saved to " + path)
	return path, nil
}

// GetExportHistory lists recent export runs
func (a *App) GetExportHistory(limit int) ([]models.ExportJob, error) {
	return a.svc.History.List(limit)
}

// Notification Methods

// GetToasts returns the visible toasts
func (a *App) GetToasts() []notify.Toast {
	return a.svc.Notify.Toasts()
}

// DismissToast removes a toast
func (a *App) DismissToast(id int64) bool {
	return a.svc.Notify.Dismiss(id)
}

// GetModal returns the open modal, or nil
func (a *App) GetModal() *notify.Modal {
	return a.svc.Notify.Modal()
}

// ResolveModal runs the modal action at index and closes the modal
func (a *App) ResolveModal(index int) error {
	return a.svc.Notify.ResolveModal(index)
}

// CloseModal closes the modal without running an action
func (a *App) CloseModal() {
	a.svc.Notify.CloseModal()
}

// ====================================================================================
// SCHEDULER METHODS
// ====================================================================================

// ListScheduledJobs returns the housekeeping jobs
func (a *App) ListScheduledJobs() ([]scheduler.JobListResponse, error) {
	return a.svc.Scheduler.ListJobs()
}

// UpsertScheduledJob creates or updates a housekeeping job
func (a *App) UpsertScheduledJob(req scheduler.UpsertJobRequest) (string, error) {
	return a.svc.Scheduler.UpsertJob(req)
}

// RunScheduledJob runs a housekeeping job now
func (a *App) RunScheduledJob(idOrName string) error {
	return a.svc.Scheduler.RunNow(idOrName)
}

// saveWithDialog asks for a destination and writes data there. An empty
// path means the user cancelled the dialog.
func (a *App) saveWithDialog(title, filename string, data []byte) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	path, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           title,
		DefaultFilename: filename,
	})
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", a.svc.Report(fmt.Errorf("write %s: %w", path, err), "Failed to save file")
	}
	return path, nil
}
