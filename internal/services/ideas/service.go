// Package ideas keeps the collection of saved Reel analyses.
package ideas

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/storage"
)

// Sort orders understood by Query.
const (
	SortNewest       = "newest"
	SortOldest       = "oldest"
	SortAlphabetical = "alphabetical"
	SortMostTags     = "mostTags"
)

// Idea is a saved analysis.
type Idea struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	StyleDescription string    `json:"styleDescription"`
	StyleTags        []string  `json:"styleTags"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Query filters and orders the collection.
type Query struct {
	Search string   `json:"search" form:"search"`
	Tags   []string `json:"tags" form:"tags"`
	Sort   string   `json:"sort" form:"sort"`
}

// Service manages the persisted ideas collection.
type Service struct {
	mu     sync.Mutex
	store  storage.Store
	log    *slog.Logger
	now    func() time.Time
	lastID int64
}

func NewService(store storage.Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// List returns the collection in stored order, newest saves first.
func (s *Service) List() ([]Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add saves result at the front of the collection.
func (s *Service) Add(result analysis.Result) (Idea, error) {
	if err := analysis.ValidateURL(result.ReelURL); err != nil {
		return Idea{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ideas, err := s.load()
	if err != nil {
		return Idea{}, err
	}

	now := s.now()
	tags := result.StyleTags
	if tags == nil {
		tags = []string{}
	}
	timestamp := result.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	idea := Idea{
		ID:               s.nextID(now, ideas),
		URL:              result.ReelURL,
		StyleDescription: result.StyleDescription,
		StyleTags:        tags,
		Timestamp:        timestamp,
		CreatedAt:        now.UTC(),
	}

	if err := s.store.Set(storage.KeyIdeas, append([]Idea{idea}, ideas...)); err != nil {
		return Idea{}, err
	}
	s.log.Info("idea saved", "id", idea.ID, "url", idea.URL)
	return idea, nil
}

// Get returns one idea.
func (s *Service) Get(id string) (Idea, error) {
	ideas, err := s.List()
	if err != nil {
		return Idea{}, err
	}
	for _, idea := range ideas {
		if idea.ID == id {
			return idea, nil
		}
	}
	return Idea{}, fmt.Errorf("idea %q: %w", id, apperr.ErrNotFound)
}

// Remove deletes one idea.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ideas, err := s.load()
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(ideas, func(i Idea) bool { return i.ID == id })
	if idx < 0 {
		return fmt.Errorf("idea %q: %w", id, apperr.ErrNotFound)
	}
	ideas = slices.Delete(ideas, idx, idx+1)
	if err := s.store.Set(storage.KeyIdeas, ideas); err != nil {
		return err
	}
	s.log.Info("idea deleted", "id", id)
	return nil
}

// Query returns the ideas matching q in the requested order.
func (s *Service) Query(q Query) ([]Idea, error) {
	ideas, err := s.List()
	if err != nil {
		return nil, err
	}
	return Filter(ideas, q), nil
}

// Filter applies q to ideas without touching storage.
func Filter(ideas []Idea, q Query) []Idea {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Idea, 0, len(ideas))
	for _, idea := range ideas {
		if search != "" && !matchesSearch(idea, search) {
			continue
		}
		if !hasAllTags(idea, q.Tags) {
			continue
		}
		out = append(out, idea)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case SortOldest:
			return a.Timestamp.Before(b.Timestamp)
		case SortAlphabetical:
			return a.URL < b.URL
		case SortMostTags:
			return len(a.StyleTags) > len(b.StyleTags)
		default:
			return a.Timestamp.After(b.Timestamp)
		}
	})
	return out
}

// AvailableTags returns every tag used in the collection, sorted.
func (s *Service) AvailableTags() ([]string, error) {
	ideas, err := s.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	tags := []string{}
	for _, idea := range ideas {
		for _, tag := range idea.StyleTags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ExportJSON returns the collection as indented JSON and a dated filename.
func (s *Service) ExportJSON() (string, []byte, error) {
	ideas, err := s.List()
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(ideas, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode ideas: %w", err)
	}
	filename := fmt.Sprintf("reel-ideas-%s.json", s.now().Format("2006-01-02"))
	return filename, data, nil
}

// Select remembers an idea as the reference for the next remake.
func (s *Service) Select(id string) (Idea, error) {
	idea, err := s.Get(id)
	if err != nil {
		return Idea{}, err
	}
	if err := s.store.Set(storage.KeySelectedIdea, idea); err != nil {
		return Idea{}, err
	}
	return idea, nil
}

// Selected returns the remembered idea, if any.
func (s *Service) Selected() (Idea, bool, error) {
	var idea Idea
	found, err := s.store.Get(storage.KeySelectedIdea, &idea)
	if err != nil || !found {
		return Idea{}, false, err
	}
	return idea, true, nil
}

func (s *Service) load() ([]Idea, error) {
	ideas := []Idea{}
	if _, err := s.store.Get(storage.KeyIdeas, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// nextID returns reel_<unix-ms>, bumped past the last issued id and any
// stored id so two saves in one millisecond stay distinct.
func (s *Service) nextID(now time.Time, existing []Idea) string {
	ms := now.UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	for slices.ContainsFunc(existing, func(i Idea) bool { return i.ID == fmt.Sprintf("reel_%d", ms) }) {
		ms++
	}
	s.lastID = ms
	return fmt.Sprintf("reel_%d", ms)
}

func matchesSearch(idea Idea, search string) bool {
	if strings.Contains(strings.ToLower(idea.URL), search) ||
		strings.Contains(strings.ToLower(idea.StyleDescription), search) {
		return true
	}
	for _, tag := range idea.StyleTags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func hasAllTags(idea Idea, tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(idea.StyleTags, tag) {
			return false
		}
	}
	return true
}
