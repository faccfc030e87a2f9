package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.APIErrorKind
	}{
		{"generic error", errors.New("connection reset"), apperr.APIErrorProvider},
		{"quota exceeded", errors.New("quota exceeded for model"), apperr.APIErrorQuota},
		{"rate limit", errors.New("Rate limit reached"), apperr.APIErrorQuota},
		{"429 status", errors.New("API returned unexpected status code: 429"), apperr.APIErrorQuota},
		{"content filter", errors.New("finish_reason content_filter"), apperr.APIErrorBlocked},
		{"wrapped blocked", fmt.Errorf("call: %w", errors.New("response blocked")), apperr.APIErrorBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *apperr.APIError
			require.True(t, errors.As(classifyError(tt.err), &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}

	t.Run("Should pass context errors through", func(t *testing.T) {
		assert.Equal(t, context.Canceled, classifyError(context.Canceled))
	})
}

func TestNewModel(t *testing.T) {
	t.Run("Should require an OpenAI key", func(t *testing.T) {
		_, err := NewModel(config.Config{LLMBackend: config.BackendOpenAI, LLMModel: "gpt-4o-mini"})
		var cfgErr *apperr.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "OPENAI_API_KEY", cfgErr.Setting)
	})

	t.Run("Should require an Anthropic key", func(t *testing.T) {
		_, err := NewModel(config.Config{LLMBackend: config.BackendAnthropic, LLMModel: "claude"})
		var cfgErr *apperr.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "ANTHROPIC_API_KEY", cfgErr.Setting)
	})

	t.Run("Should reject unknown backends", func(t *testing.T) {
		_, err := NewModel(config.Config{LLMBackend: "mystery"})
		var cfgErr *apperr.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("Should build an ollama model without network access", func(t *testing.T) {
		m, err := NewModel(config.Config{
			LLMBackend: config.BackendOllama,
			LLMModel:   "llama3.2",
			OllamaHost: "http://127.0.0.1:11434",
		})
		require.NoError(t, err)
		assert.Equal(t, "ollama/llama3.2", m.Model())
	})
}
