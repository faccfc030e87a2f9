// Package settings loads, validates and persists user export preferences.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/services/export"
	"reelsmith-desktop/internal/storage"

	"gopkg.in/yaml.v3"
)

// Service owns the persisted Settings value.
type Service struct {
	store storage.Store
	log   *slog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	current Settings
}

// NewService loads persisted settings, falling back to defaults when none
// are stored.
func NewService(store storage.Store, log *slog.Logger) (*Service, error) {
	s := &Service{store: store, log: log, now: time.Now}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load re-reads the persisted settings.
func (s *Service) Load() (Settings, error) {
	loaded := Defaults()
	if _, err := s.store.Get(storage.KeySettings, &loaded); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded, nil
}

// Get returns the current settings.
func (s *Service) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates and persists next.
func (s *Service) Save(next Settings) (Settings, error) {
	next = normalize(next)
	if err := Validate(next); err != nil {
		return Settings{}, err
	}
	if err := s.store.Set(storage.KeySettings, next); err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	s.log.Info("settings saved")
	return next, nil
}

// Reset restores defaults and removes the persisted value.
func (s *Service) Reset() (Settings, error) {
	if err := s.store.Remove(storage.KeySettings); err != nil {
		return Settings{}, err
	}
	defaults := Defaults()
	s.mu.Lock()
	s.current = defaults
	s.mu.Unlock()
	s.log.Info("settings reset to defaults")
	return defaults, nil
}

// Export encodes the current settings as a downloadable document.
func (s *Service) Export(format Format) (Document, error) {
	current := s.Get()
	date := s.now().Format("2006-01-02")

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(current, "", "  ")
		if err != nil {
			return Document{}, fmt.Errorf("encode settings: %w", err)
		}
		return Document{
			Filename: fmt.Sprintf("reelsmith_settings_%s.json", date),
			MimeType: "application/json",
			Data:     data,
		}, nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(current); err != nil {
			return Document{}, fmt.Errorf("encode settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return Document{}, fmt.Errorf("encode settings: %w", err)
		}
		return Document{
			Filename: fmt.Sprintf("reelsmith_settings_%s.yaml", date),
			MimeType: "application/yaml",
			Data:     buf.Bytes(),
		}, nil
	default:
		return Document{}, apperr.NewValidation("format", "unsupported settings format %q", format)
	}
}

// Import decodes, validates and persists a settings document. Fields absent
// from the document keep their default values.
func (s *Service) Import(data []byte, format Format) (Settings, error) {
	imported := Defaults()
	var err error
	switch format {
	case FormatJSON, "":
		err = json.Unmarshal(data, &imported)
	case FormatYAML:
		err = yaml.Unmarshal(data, &imported)
	default:
		return Settings{}, apperr.NewValidation("format", "unsupported settings format %q", format)
	}
	if err != nil {
		return Settings{}, apperr.NewValidation("file", "Invalid settings file: %v", err)
	}
	return s.Save(imported)
}

// FormatFromFilename picks a Format from a file extension.
func FormatFromFilename(name string) Format {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// ExportSettingsFor combines the current settings with a template choice.
func (s *Service) ExportSettingsFor(templateID string) export.Settings {
	current := s.Get()
	return export.Settings{
		TemplateID:        templateID,
		OutputFormat:      "1080x1920 MP4",
		Codec:             "H.264",
		FrameRate:         current.Export.FrameRate,
		CRF:               current.Export.CRFValue,
		PixelFormat:       current.Export.PixelFormat,
		AudioCodec:        current.Export.AudioEncoding,
		WatermarkText:     strings.TrimSpace(current.Watermark.Text),
		WatermarkPosition: current.Watermark.Position,
		WatermarkOpacity:  current.Watermark.Opacity,
		BackgroundMusic:   current.BackgroundMusic.Enabled,
		MusicVolume:       current.BackgroundMusic.Volume,
		MusicLoop:         current.BackgroundMusic.Loop,
	}
}

// Validate checks value ranges.
func Validate(v Settings) error {
	if v.Watermark.Opacity < 0 || v.Watermark.Opacity > 1 {
		return apperr.NewValidation("watermark.opacity", "Watermark opacity must be between 0 and 1")
	}
	if !slices.Contains(WatermarkPositions, v.Watermark.Position) {
		return apperr.NewValidation("watermark.position", "Unknown watermark position %q", v.Watermark.Position)
	}
	if v.BackgroundMusic.Volume < 0 || v.BackgroundMusic.Volume > 1 {
		return apperr.NewValidation("backgroundMusic.volume", "Music volume must be between 0 and 1")
	}
	if v.Export.CRFValue < 0 || v.Export.CRFValue > 51 {
		return apperr.NewValidation("export.crfValue", "CRF value must be between 0 and 51")
	}
	if !slices.Contains(FrameRates, v.Export.FrameRate) {
		return apperr.NewValidation("export.frameRate", "Unsupported frame rate %d", v.Export.FrameRate)
	}
	if v.TemplateDefaults.TransitionDuration < 0 || v.TemplateDefaults.ClipDuration <= 0 {
		return apperr.NewValidation("templateDefaults", "Durations must be positive")
	}
	if v.TemplateDefaults.KenBurnsZoom < 1 {
		return apperr.NewValidation("templateDefaults.kenBurnsZoom", "Ken Burns zoom must be at least 1.0")
	}
	return nil
}

func normalize(v Settings) Settings {
	v.Watermark.Text = strings.TrimSpace(v.Watermark.Text)
	v.Watermark.Position = strings.ToLower(strings.TrimSpace(v.Watermark.Position))
	v.Watermark.Opacity = round2(v.Watermark.Opacity)
	v.BackgroundMusic.Volume = round2(v.BackgroundMusic.Volume)
	if v.BackgroundMusic.CustomFile != nil && strings.TrimSpace(*v.BackgroundMusic.CustomFile) == "" {
		v.BackgroundMusic.CustomFile = nil
	}
	if v.TemplateDefaults.PreferredTemplate == "" {
		v.TemplateDefaults.PreferredTemplate = "none"
	}
	return v
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
