// Package templates serves the built-in video template catalog.
package templates

import (
	_ "embed"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/storage"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateID is used when no template has been selected.
const DefaultTemplateID = "travel_kenburns"

// FilterAll disables a category or media type filter.
const FilterAll = "all"

//go:embed catalog.yaml
var catalogYAML []byte

// OutputSpecs is the rendered video format of a template.
type OutputSpecs struct {
	Resolution string `json:"resolution" yaml:"resolution"`
	FPS        int    `json:"fps" yaml:"fps"`
}

// Template is one catalog entry.
type Template struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Description      string      `json:"description" yaml:"description"`
	Category         string      `json:"category" yaml:"category"`
	MediaType        string      `json:"mediaType" yaml:"mediaType"`
	Effects          []string    `json:"effects" yaml:"effects"`
	UseCases         []string    `json:"useCases" yaml:"useCases"`
	SupportedFormats []string    `json:"supportedFormats" yaml:"supportedFormats"`
	OutputSpecs      OutputSpecs `json:"outputSpecs" yaml:"outputSpecs"`
	Duration         string      `json:"duration" yaml:"duration"`
	Transitions      string      `json:"transitions" yaml:"transitions"`
	IsNew            bool        `json:"isNew" yaml:"isNew"`
}

// Supports reports whether the template accepts files of format (e.g. "MP4").
func (t Template) Supports(format string) bool {
	return slices.ContainsFunc(t.SupportedFormats, func(f string) bool {
		return strings.EqualFold(f, format)
	})
}

// Filter narrows the catalog.
type Filter struct {
	Search    string `json:"search" form:"search"`
	Category  string `json:"category" form:"category"`
	MediaType string `json:"mediaType" form:"mediaType"`
}

// Service exposes the catalog and the persisted selection.
type Service struct {
	store     storage.Store
	log       *slog.Logger
	templates []Template
}

// NewService loads the embedded catalog.
func NewService(store storage.Store, log *slog.Logger) (*Service, error) {
	templates, err := parseCatalog(catalogYAML)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, log: log, templates: templates}, nil
}

func parseCatalog(data []byte) ([]Template, error) {
	var templates []Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.ID == "" || seen[t.ID] {
			return nil, fmt.Errorf("template catalog: missing or duplicate id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return templates, nil
}

// List returns every template in catalog order.
func (s *Service) List() []Template {
	return slices.Clone(s.templates)
}

// Get looks up a template by id.
func (s *Service) Get(id string) (Template, error) {
	for _, t := range s.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("template %q: %w", id, apperr.ErrNotFound)
}

// Filter applies search text, category and media type.
func (s *Service) Filter(f Filter) []Template {
	query := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		if query != "" && !matches(t, query) {
			continue
		}
		if f.Category != "" && f.Category != FilterAll && t.Category != f.Category {
			continue
		}
		if f.MediaType != "" && f.MediaType != FilterAll && t.MediaType != f.MediaType {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Categories returns the distinct categories in catalog order.
func (s *Service) Categories() []string {
	var out []string
	for _, t := range s.templates {
		if !slices.Contains(out, t.Category) {
			out = append(out, t.Category)
		}
	}
	return out
}

// Select persists the chosen template.
func (s *Service) Select(id string) (Template, error) {
	t, err := s.Get(id)
	if err != nil {
		return Template{}, err
	}
	if err := s.store.Set(storage.KeySelectedTemplate, t.ID); err != nil {
		return Template{}, err
	}
	s.log.Info("template selected", "template", t.ID)
	return t, nil
}

// Selected returns the persisted selection, or the default template.
func (s *Service) Selected() (Template, error) {
	var id string
	found, err := s.store.Get(storage.KeySelectedTemplate, &id)
	if err != nil {
		return Template{}, err
	}
	if !found {
		return s.Get(DefaultTemplateID)
	}
	t, err := s.Get(id)
	if err != nil {
		// A stale selection falls back to the default.
		s.log.Warn("selected template no longer exists", "template", id)
		return s.Get(DefaultTemplateID)
	}
	return t, nil
}

func matches(t Template, query string) bool {
	if strings.Contains(strings.ToLower(t.Name), query) ||
		strings.Contains(strings.ToLower(t.Description), query) {
		return true
	}
	for _, list := range [][]string{t.Effects, t.UseCases} {
		for _, item := range list {
			if strings.Contains(strings.ToLower(item), query) {
				return true
			}
		}
	}
	return false
}
