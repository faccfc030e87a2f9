// Package llm adapts langchaingo chat models to the analysis Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	backend   string
	modelName string
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMBackend {
	case config.BackendOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, &apperr.ConfigurationError{Setting: "OPENAI_API_KEY",
				Message: "OpenAI API key is not configured. Please check your environment settings."}
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.BackendAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, &apperr.ConfigurationError{Setting: "ANTHROPIC_API_KEY",
				Message: "Anthropic API key is not configured. Please check your environment settings."}
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, &apperr.ConfigurationError{Setting: "LLM_BACKEND",
			Message: fmt.Sprintf("Unsupported LLM backend %q.", cfg.LLMBackend)}
	}

	return &Model{llm: model, backend: cfg.LLMBackend, modelName: cfg.LLMModel}, nil
}

// Generate generates text based on a prompt with the analysis sampling
// parameters.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		return "", classifyError(err)
	}
	return response, nil
}

// Ping asks for a one-word reply to confirm the backend is reachable.
func (m *Model) Ping(ctx context.Context) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, m.llm, "Reply with OK.", llms.WithMaxTokens(5))
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.backend + "/" + m.modelName
}

// classifyError maps langchaingo failures onto *apperr.APIError by message.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	kind := apperr.APIErrorProvider
	switch {
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"):
		kind = apperr.APIErrorQuota
	case strings.Contains(msg, "blocked"),
		strings.Contains(msg, "safety"),
		strings.Contains(msg, "content_filter"):
		kind = apperr.APIErrorBlocked
	}
	return &apperr.APIError{Kind: kind, Err: fmt.Errorf("generate: %w", err)}
}
