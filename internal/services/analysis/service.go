// Package analysis asks an AI provider to describe the style of a Reel.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"reelsmith-desktop/internal/api"
	"reelsmith-desktop/internal/apperr"
)

var reelURLPattern = regexp.MustCompile(`^https?://(www\.)?(instagram\.com|instagr\.am)/(reel|p)/[A-Za-z0-9_-]+`)

const promptTemplate = `Please analyze the Instagram Reel at this URL: %s

As an expert in social media content and video production, provide a detailed analysis of this Instagram Reel's style, visual elements, and content approach. 

Please respond in the following JSON format:
{
  "styleDescription": "A detailed description of the visual style, editing techniques, color grading, pacing, and overall aesthetic approach used in this reel. Include information about camera work, transitions, text overlays, music synchronization, and any unique creative elements.",
  "styleTags": ["Array of 5-8 specific style tags that categorize this content, such as 'Travel Vlog', 'Dynamic Cuts', 'Warm Tones', 'Text Overlays', 'Aspirational', etc."]
}

Focus on actionable insights that would help someone create similar content. Analyze the editing style, visual composition, color palette, pacing, and engagement techniques used.`

// BuildPrompt returns the analysis prompt for url.
func BuildPrompt(url string) string {
	return fmt.Sprintf(promptTemplate, url)
}

// ValidateURL checks that url points at an Instagram Reel or post.
func ValidateURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return apperr.NewValidation("url", "Please enter an Instagram Reel URL")
	}
	if !reelURLPattern.MatchString(url) {
		return apperr.NewValidation("url", "Please enter a valid Instagram Reel URL")
	}
	return nil
}

// Service runs Reel analyses.
type Service struct {
	gen   Generator
	cache *api.LRUCache
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates an analysis service. A nil cache disables caching.
func NewService(gen Generator, cache *api.LRUCache, log *slog.Logger) *Service {
	return &Service{gen: gen, cache: cache, log: log, now: time.Now}
}

// Analyze validates url, calls the provider and interprets its reply.
func (s *Service) Analyze(ctx context.Context, url string) (Result, error) {
	url = strings.TrimSpace(url)
	if err := ValidateURL(url); err != nil {
		return Result{}, err
	}
	if s.gen == nil {
		return Result{}, &apperr.ConfigurationError{Setting: "GEMINI_API_KEY", Message: api.MissingKeyMessage}
	}

	raw, cached := s.cache.Get(url)
	if !cached {
		start := s.now()
		text, err := s.gen.Generate(ctx, BuildPrompt(url))
		if err != nil {
			s.log.Error("reel analysis failed", "url", url, "error", err)
			return Result{}, err
		}
		raw = text
		s.cache.Put(url, raw)
		s.log.Info("reel analyzed", "url", url, "duration", s.now().Sub(start))
	} else {
		s.log.Debug("reel analysis served from cache", "url", url)
	}

	resp := ParseResponse(raw)
	if _, ok := resp.(Fallback); ok {
		s.log.Warn("could not parse JSON response, using raw text", "url", url)
	}
	result := toResult(resp, raw, url)
	result.Timestamp = s.now()
	return result, nil
}

// TestAPIKey checks the provider credential with a cheap call.
func (s *Service) TestAPIKey(ctx context.Context) error {
	if s.gen == nil {
		return &apperr.ConfigurationError{Setting: "GEMINI_API_KEY", Message: api.MissingKeyMessage}
	}
	if p, ok := s.gen.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.gen.Generate(ctx, "Reply with OK.")
	return err
}

// ClearCache drops cached provider replies, e.g. after the key changes.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// Unavailable is a Generator that always fails with err. It stands in for
// a provider that could not be constructed.
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Generate(context.Context, string) (string, error) { return "", u.err }
func (u unavailable) Ping(context.Context) error                       { return u.err }
