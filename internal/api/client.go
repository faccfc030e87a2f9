// Package api is a small REST client for the Gemini generateContent API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reelsmith-desktop/internal/apperr"

	"github.com/go-resty/resty/v2"
)

// MissingKeyMessage is shown when no Gemini credential is configured.
const MissingKeyMessage = "Gemini API key is not configured. Please check your environment settings."

// KeyFunc returns the API key to send, or "" when none is configured.
type KeyFunc func() (string, error)

// GenerationConfig mirrors the generationConfig request object.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig is used by Generate.
var DefaultGenerationConfig = GenerationConfig{Temperature: 0.7, MaxOutputTokens: 1000}

// Client represents a Gemini API client
type Client struct {
	baseURL string
	model   string
	apiKey  KeyFunc
	http    *resty.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithRetry overrides the retry budget for 429 and 5xx responses.
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(timeout) }
}

// NewClient creates a new Gemini API client
func NewClient(baseURL, model string, apiKey KeyFunc, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
	}

	// Configure resty client
	client.http = resty.New().
		SetHeader("User-Agent", "reelsmith-desktop").
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt with DefaultGenerationConfig and returns the
// concatenated text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContent(ctx, prompt, DefaultGenerationConfig)
}

// GenerateContent calls models/<model>:generateContent.
func (c *Client) GenerateContent(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	key, err := c.key()
	if err != nil {
		return "", err
	}

	body := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: cfg,
	}
	endpoint := fmt.Sprintf("v1beta/models/%s:generateContent", c.model)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", key).
		SetBody(body).
		Post(c.buildURL(endpoint))
	if err != nil {
		return "", &apperr.APIError{Kind: apperr.APIErrorProvider, Err: err}
	}
	if !resp.IsSuccess() {
		return "", classify(resp)
	}

	var result generateResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", &apperr.APIError{Kind: apperr.APIErrorProvider, StatusCode: resp.StatusCode(),
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if reason := result.PromptFeedback.BlockReason; reason != "" {
		return "", &apperr.APIError{Kind: apperr.APIErrorBlocked, StatusCode: resp.StatusCode(),
			Err: fmt.Errorf("prompt blocked: %s", reason)}
	}
	if len(result.Candidates) == 0 {
		return "", &apperr.APIError{Kind: apperr.APIErrorProvider, StatusCode: resp.StatusCode(),
			Err: errors.New("response contained no candidates")}
	}

	candidate := result.Candidates[0]
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 && candidate.FinishReason == "SAFETY" {
		return "", &apperr.APIError{Kind: apperr.APIErrorBlocked, StatusCode: resp.StatusCode(),
			Err: errors.New("candidate blocked by safety filters")}
	}
	return text.String(), nil
}

// Ping lists a single model to check that the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	key, err := c.key()
	if err != nil {
		return err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", key).
		SetQueryParam("pageSize", "1").
		Get(c.buildURL("v1beta/models"))
	if err != nil {
		return &apperr.APIError{Kind: apperr.APIErrorProvider, Err: err}
	}
	if !resp.IsSuccess() {
		return classify(resp)
	}
	return nil
}

func (c *Client) key() (string, error) {
	if c.apiKey == nil {
		return "", &apperr.ConfigurationError{Setting: "GEMINI_API_KEY", Message: MissingKeyMessage}
	}
	key, err := c.apiKey()
	if err != nil {
		return "", &apperr.ConfigurationError{Setting: "GEMINI_API_KEY", Message: MissingKeyMessage, Err: err}
	}
	if strings.TrimSpace(key) == "" {
		return "", &apperr.ConfigurationError{Setting: "GEMINI_API_KEY", Message: MissingKeyMessage}
	}
	return key, nil
}

// classify maps a non-2xx response onto an *apperr.APIError.
func classify(resp *resty.Response) error {
	var payload errorResponse
	message := strings.TrimSpace(string(resp.Body()))
	if err := json.Unmarshal(resp.Body(), &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
	}
	if message == "" {
		message = resp.Status()
	}

	lower := strings.ToLower(message)
	kind := apperr.APIErrorProvider
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests,
		payload.Error.Status == "RESOURCE_EXHAUSTED",
		strings.Contains(lower, "quota"):
		kind = apperr.APIErrorQuota
	case strings.Contains(lower, "blocked"), strings.Contains(lower, "safety"):
		kind = apperr.APIErrorBlocked
	}
	return &apperr.APIError{
		Kind:       kind,
		StatusCode: resp.StatusCode(),
		Err:        fmt.Errorf("gemini returned status %d: %s", resp.StatusCode(), message),
	}
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}
