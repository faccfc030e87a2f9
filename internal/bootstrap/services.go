// Package bootstrap wires configuration, storage and services into one
// container shared by the desktop app, the HTTP API and the CLI.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"reelsmith-desktop/internal/api"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/crypto"
	"reelsmith-desktop/internal/database"
	"reelsmith-desktop/internal/llm"
	"reelsmith-desktop/internal/notify"
	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/services/export"
	"reelsmith-desktop/internal/services/ideas"
	"reelsmith-desktop/internal/services/media"
	"reelsmith-desktop/internal/services/scheduler"
	"reelsmith-desktop/internal/services/settings"
	"reelsmith-desktop/internal/services/templates"
	"reelsmith-desktop/internal/storage"
)

// Services holds every long-lived component.
type Services struct {
	Config      config.Config
	Log         *slog.Logger
	DB          *gorm.DB
	Store       storage.Store
	Credentials *crypto.Credentials
	Notify      *notify.Service
	Settings    *settings.Service
	Analysis    *analysis.Service
	Ideas       *ideas.Service
	Templates   *templates.Service
	Media       *media.Workspace
	Artifacts   *export.FileStore
	History     *export.GormHistory
	Export      *export.Service
	Scheduler   *scheduler.Service
}

// Option adjusts the container before services are built.
type Option func(*buildOptions)

type buildOptions struct {
	cipher      *crypto.Cipher
	skipKeyring bool
	generator   analysis.Generator
	exportOpts  []export.Option
}

// WithCipher uses cipher instead of resolving a key from the keychain.
func WithCipher(cipher *crypto.Cipher) Option {
	return func(o *buildOptions) { o.cipher = cipher }
}

// WithoutKeyring disables stored credentials; only environment keys work.
func WithoutKeyring() Option {
	return func(o *buildOptions) { o.skipKeyring = true }
}

// WithGenerator replaces the configured AI provider.
func WithGenerator(gen analysis.Generator) Option {
	return func(o *buildOptions) { o.generator = gen }
}

// WithExportOptions passes extra options to the export pipeline.
func WithExportOptions(opts ...export.Option) Option {
	return func(o *buildOptions) { o.exportOpts = append(o.exportOpts, opts...) }
}

// New opens the database and constructs every service. The scheduler is
// created but not started; call StartBackground for long-running surfaces.
func New(cfg config.Config, log *slog.Logger, opts ...Option) (*Services, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	s := &Services{Config: cfg, Log: log, DB: db}
	if err := s.build(o); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return s, nil
}

func (s *Services) build(o buildOptions) error {
	cfg, log := s.Config, s.Log
	s.Store = storage.NewGormStore(s.DB)

	cipher := o.cipher
	if cipher == nil && !o.skipKeyring {
		key, err := crypto.ResolveKey(log)
		if err != nil {
			log.Warn("secure key storage unavailable, stored API keys disabled", "error", err)
		} else if cipher, err = crypto.NewCipher(key); err != nil {
			return err
		}
	}
	s.Credentials = crypto.NewCredentials(s.Store, cipher, cfg.GeminiAPIKey)

	s.Notify = notify.New(log)

	var err error
	if s.Settings, err = settings.NewService(s.Store, log); err != nil {
		return err
	}
	if s.Templates, err = templates.NewService(s.Store, log); err != nil {
		return err
	}
	s.Ideas = ideas.NewService(s.Store, log)
	if s.Media, err = media.NewWorkspace(cfg.MediaDir, s.Store, log); err != nil {
		return err
	}

	gen := o.generator
	if gen == nil {
		gen = newGenerator(cfg, s.Credentials, log)
	}
	s.Analysis = analysis.NewService(gen, api.NewLRUCache(cfg.AnalysisCacheSize), log)

	if s.Artifacts, err = export.NewFileStore(cfg.OutputDir); err != nil {
		return err
	}
	s.History = export.NewGormHistory(s.DB)
	exportOpts := append([]export.Option{
		export.WithWorker(export.SimulatedWorker{Tick: cfg.ExportTick}),
		export.WithHistory(s.History),
		export.WithNotifier(s.Notify),
	}, o.exportOpts...)
	s.Export = export.NewService(s.Artifacts, log, exportOpts...)

	s.Scheduler = scheduler.NewService(s.DB, log, s.Artifacts, s.History)
	return nil
}

func newGenerator(cfg config.Config, creds *crypto.Credentials, log *slog.Logger) analysis.Generator {
	switch cfg.LLMProvider {
	case config.ProviderLangchain:
		model, err := llm.NewModel(cfg)
		if err != nil {
			log.Warn("langchain provider unavailable", "backend", cfg.LLMBackend, "error", err)
			return analysis.Unavailable(err)
		}
		log.Info("analysis provider configured", "provider", cfg.LLMProvider, "model", model.Model())
		return model
	default:
		if cfg.LLMProvider != config.ProviderGemini {
			log.Warn("unknown LLM provider, using gemini", "provider", cfg.LLMProvider)
		}
		log.Info("analysis provider configured", "provider", config.ProviderGemini, "model", cfg.GeminiModel)
		return api.NewClient(cfg.GeminiBaseURL, cfg.GeminiModel, creds.APIKey)
	}
}

// StartBackground registers the housekeeping jobs and starts the scheduler.
func (s *Services) StartBackground() error {
	cfg := s.Config
	if err := s.Scheduler.RegisterDefaults(cfg.ArtifactCleanupCron, cfg.ArtifactRetention, cfg.HistoryPruneCron, cfg.HistoryKeep); err != nil {
		return err
	}
	return s.Scheduler.Start()
}

// Close stops background work and closes the database.
func (s *Services) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.Export != nil {
		if err := s.Export.Cancel(); err != nil && !errors.Is(err, export.ErrNoRunningExport) {
			s.Log.Warn("failed to cancel export on shutdown", "error", err)
		}
		s.Export.Wait()
	}
	if s.Notify != nil {
		s.Notify.Close()
	}
	return database.Close(s.DB)
}

// Report shows err as an error toast and returns it unchanged.
func (s *Services) Report(err error, fallback string) error {
	if err != nil {
		s.Notify.Error(userMessage(err, fallback))
	}
	return err
}
