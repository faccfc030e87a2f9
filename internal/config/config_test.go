package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should derive paths from the data directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("REELSMITH_DATA_DIR", dir)
		t.Setenv("DATABASE_URL", "")
		t.Setenv("REELSMITH_OUTPUT_DIR", "")

		cfg := Load()

		assert.Equal(t, dir, cfg.DataDir)
		assert.Equal(t, "sqlite://"+filepath.Join(dir, "reelsmith.db"), cfg.DatabaseURL)
		assert.Equal(t, filepath.Join(dir, "exports"), cfg.OutputDir)
		assert.Equal(t, ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
		assert.Equal(t, 100*time.Millisecond, cfg.ExportTick)
	})

	t.Run("Should honour overrides", func(t *testing.T) {
		t.Setenv("REELSMITH_DATA_DIR", t.TempDir())
		t.Setenv("EXPORT_TICK", "5ms")
		t.Setenv("HISTORY_KEEP", "7")
		t.Setenv("LLM_PROVIDER", "LangChain")

		cfg := Load()

		assert.Equal(t, 5*time.Millisecond, cfg.ExportTick)
		assert.Equal(t, 7, cfg.HistoryKeep)
		assert.Equal(t, ProviderLangchain, cfg.LLMProvider)
	})

	t.Run("Should ignore malformed numbers", func(t *testing.T) {
		t.Setenv("REELSMITH_DATA_DIR", t.TempDir())
		t.Setenv("HISTORY_KEEP", "many")
		t.Setenv("EXPORT_TICK", "fast")

		cfg := Load()

		assert.Equal(t, 50, cfg.HistoryKeep)
		assert.Equal(t, 100*time.Millisecond, cfg.ExportTick)
	})
}

func TestEnsureDirs(t *testing.T) {
	t.Run("Should create all working directories", func(t *testing.T) {
		root := t.TempDir()
		cfg := Config{
			DataDir:   filepath.Join(root, "data"),
			OutputDir: filepath.Join(root, "data", "exports"),
			MediaDir:  filepath.Join(root, "data", "media"),
		}
		require.NoError(t, cfg.EnsureDirs())
		assert.DirExists(t, cfg.OutputDir)
		assert.DirExists(t, cfg.MediaDir)
	})
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	t.Run("Should write text and JSON outputs", func(t *testing.T) {
		var stderr, file bytes.Buffer
		logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

		logger.Info("export started", "run_id", "abc")
		logger.Debug("hidden")

		assert.Contains(t, stderr.String(), "export started")
		assert.NotContains(t, stderr.String(), "hidden")

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(file.String())), &record))
		assert.Equal(t, "abc", record["run_id"])
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("Should create the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "reelsmith.log")
		logger, cleanup := SetupLogger(path, slog.LevelInfo)
		logger.Info("hello")
		require.NoError(t, cleanup())
		assert.FileExists(t, path)
	})
}
