package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers understood by the analysis client.
const (
	ProviderGemini    = "gemini"
	ProviderLangchain = "langchain"
)

// Langchain backends.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendOllama    = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// Storage
	DatabaseURL string
	DataDir     string
	OutputDir   string
	MediaDir    string

	// AI provider
	LLMProvider       string
	LLMBackend        string
	LLMModel          string
	GeminiAPIKey      string
	GeminiModel       string
	GeminiBaseURL     string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	OllamaHost        string
	AnalysisCacheSize int

	// Export pipeline
	ExportTick time.Duration

	// Housekeeping
	ArtifactRetention   time.Duration
	ArtifactCleanupCron string
	HistoryPruneCron    string
	HistoryKeep         int

	// HTTP API
	HTTPAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables, preloading a .env
// file from the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getEnv("REELSMITH_DATA_DIR", defaultDataDir())

	return Config{
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://"+filepath.Join(dataDir, "reelsmith.db")),
		DataDir:     dataDir,
		OutputDir:   getEnv("REELSMITH_OUTPUT_DIR", filepath.Join(dataDir, "exports")),
		MediaDir:    getEnv("REELSMITH_MEDIA_DIR", filepath.Join(dataDir, "media")),

		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		LLMBackend:        strings.ToLower(getEnv("LLM_BACKEND", BackendOllama)),
		LLMModel:          getEnv("LLM_MODEL", "llama3.2"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AnalysisCacheSize: getEnvInt("ANALYSIS_CACHE_SIZE", 32),

		ExportTick: getEnvDuration("EXPORT_TICK", 100*time.Millisecond),

		ArtifactRetention:   getEnvDuration("ARTIFACT_RETENTION", 7*24*time.Hour),
		ArtifactCleanupCron: getEnv("ARTIFACT_CLEANUP_CRON", "0 3 * * *"),
		HistoryPruneCron:    getEnv("HISTORY_PRUNE_CRON", "30 3 * * *"),
		HistoryKeep:         getEnvInt("HISTORY_KEEP", 50),

		HTTPAddr: getEnv("HTTP_ADDR", "127.0.0.1:8490"),

		LogFile:  getEnv("LOG_FILE", filepath.Join(dataDir, "reelsmith.log")),
		LogLevel: ParseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

// EnsureDirs creates the data, output and media directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OutputDir, c.MediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func defaultDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".reelsmith"
	}
	return filepath.Join(configDir, "reelsmith")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration from environment variable with default fallback
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ParseLogLevel maps a level name to slog.Level, defaulting to Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
