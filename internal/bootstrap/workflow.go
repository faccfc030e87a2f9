package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/services/export"
	"reelsmith-desktop/internal/services/ideas"
	"reelsmith-desktop/internal/services/settings"
	"reelsmith-desktop/internal/services/templates"
	"reelsmith-desktop/internal/storage"
)

// AnalyzeReel runs an analysis and reports the outcome as a toast.
func (s *Services) AnalyzeReel(ctx context.Context, url string) (analysis.Result, error) {
	result, err := s.Analysis.Analyze(ctx, url)
	if err != nil {
		return analysis.Result{}, s.Report(err, "Failed to analyze the Instagram Reel. Please try again.")
	}
	s.Notify.Success("Reel analysis completed successfully!")
	return result, nil
}

// SaveAnalysis stores a result in the ideas collection.
func (s *Services) SaveAnalysis(result analysis.Result) (ideas.Idea, error) {
	idea, err := s.Ideas.Add(result)
	if err != nil {
		return ideas.Idea{}, s.Report(err, "Failed to save analysis. Please try again.")
	}
	s.Notify.Success("Analysis saved to your ideas collection!")
	return idea, nil
}

// DeleteIdea removes an idea from the collection.
func (s *Services) DeleteIdea(id string) error {
	if err := s.Ideas.Remove(id); err != nil {
		return s.Report(err, "Failed to delete idea")
	}
	s.Notify.Success("Idea deleted successfully")
	return nil
}

// RemakeIdea remembers an idea as the reference for template selection.
func (s *Services) RemakeIdea(id string) (ideas.Idea, error) {
	idea, err := s.Ideas.Select(id)
	if err != nil {
		return ideas.Idea{}, s.Report(err, "Failed to select idea")
	}
	s.Notify.Info("Proceeding to template selection")
	return idea, nil
}

// SelectTemplate persists the template choice.
func (s *Services) SelectTemplate(id string) (templates.Template, error) {
	tmpl, err := s.Templates.Select(id)
	if err != nil {
		return templates.Template{}, s.Report(err, "Failed to select template")
	}
	s.Notify.Success(tmpl.Name + " template selected successfully!")
	return tmpl, nil
}

// RemoveMedia deletes one media file from the workspace.
func (s *Services) RemoveMedia(id string) error {
	if err := s.Media.Remove(id); err != nil {
		return s.Report(err, "Failed to remove file")
	}
	s.Notify.Info("File removed from workspace")
	return nil
}

// ReorderMedia moves a media file within the workspace.
func (s *Services) ReorderMedia(from, to int) error {
	if err := s.Media.Reorder(from, to); err != nil {
		return s.Report(err, "Failed to reorder media files")
	}
	s.Notify.Info("Media files reordered")
	return nil
}

// ClearMedia empties the workspace.
func (s *Services) ClearMedia() error {
	if len(s.Media.Items()) == 0 {
		return nil
	}
	if err := s.Media.Clear(); err != nil {
		return s.Report(err, "Failed to clear media files")
	}
	s.Notify.Info("All media files cleared")
	return nil
}

// SaveSettings validates and persists new settings.
func (s *Services) SaveSettings(next settings.Settings) (settings.Settings, error) {
	saved, err := s.Settings.Save(next)
	if err != nil {
		return settings.Settings{}, s.Report(err, "Failed to save settings")
	}
	s.Notify.Success("Settings saved successfully!")
	return saved, nil
}

// ResetSettings restores the factory settings.
func (s *Services) ResetSettings() (settings.Settings, error) {
	defaults, err := s.Settings.Reset()
	if err != nil {
		return settings.Settings{}, s.Report(err, "Failed to reset settings")
	}
	s.Notify.Info("Settings reset to defaults")
	return defaults, nil
}

// ImportSettings replaces the settings with an imported document.
func (s *Services) ImportSettings(data []byte, format settings.Format) (settings.Settings, error) {
	imported, err := s.Settings.Import(data, format)
	if err != nil {
		return settings.Settings{}, s.Report(err, "Invalid settings file")
	}
	s.Notify.Success("Settings imported successfully!")
	return imported, nil
}

// SaveAPIKey stores a Gemini key and drops replies cached under the old one.
// An empty key removes the stored key.
func (s *Services) SaveAPIKey(key string) error {
	if err := s.Credentials.SetAPIKey(key); err != nil {
		return s.Report(err, "Failed to save API key")
	}
	s.Analysis.ClearCache()
	if strings.TrimSpace(key) == "" {
		s.Notify.Info("Stored API key removed")
	} else {
		s.Notify.Success("API key saved")
	}
	return nil
}

// ExportRequest optionally overrides the selected template.
type ExportRequest struct {
	TemplateID string `json:"templateId"`
}

// StartExport assembles settings, template and media manifest and starts
// the pipeline. The resolved export settings are persisted as a snapshot.
func (s *Services) StartExport(ctx context.Context, req ExportRequest) (string, error) {
	tmpl, err := s.resolveTemplate(req.TemplateID)
	if err != nil {
		return "", s.Report(err, "Failed to start export")
	}

	manifest := s.Media.Manifest()
	if err := export.ValidateManifest(manifest); err != nil {
		s.Notify.Warning(userMessage(err, ""))
		return "", err
	}

	exportSettings := s.Settings.ExportSettingsFor(tmpl.ID)
	if err := s.Store.Set(storage.KeyExportSettings, exportSettings); err != nil {
		s.Log.Warn("failed to persist export settings snapshot", "error", err)
	}

	runID, err := s.Export.Start(ctx, exportSettings, manifest)
	if err != nil {
		return "", s.Report(err, "Failed to start export")
	}
	return runID, nil
}

// CancelExport stops the running export.
func (s *Services) CancelExport() error {
	return s.Report(s.Export.Cancel(), "No export is running")
}

// RetryExport resets a finished export so a new one can start.
func (s *Services) RetryExport() error {
	return s.Report(s.Export.Retry(), "Export is still running")
}

func (s *Services) resolveTemplate(id string) (templates.Template, error) {
	if id != "" {
		return s.Templates.Get(id)
	}
	return s.Templates.Selected()
}

// userMessage maps err to display text, covering the state sentinels that
// carry no message of their own.
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, export.ErrExportAlreadyRunning):
		return "An export is already running"
	case errors.Is(err, export.ErrNoRunningExport):
		return "No export is running"
	case errors.Is(err, apperr.ErrNotFound):
		return "The requested item no longer exists"
	}
	msg := apperr.Message(err, fallback)
	if msg == "" {
		return fmt.Sprint(err)
	}
	return msg
}
