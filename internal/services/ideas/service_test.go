package ideas

import (
	"encoding/json"
	"testing"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/services/analysis"
	"reelsmith-desktop/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func newTestService(store storage.Store) *Service {
	s := NewService(store, config.Discard())
	s.now = func() time.Time { return baseTime }
	return s
}

func result(url string, age time.Duration, tags ...string) analysis.Result {
	return analysis.Result{
		ReelURL:          url,
		StyleDescription: "desc for " + url,
		StyleTags:        tags,
		Timestamp:        baseTime.Add(-age),
	}
}

func ids(ideas []Idea) []string {
	out := make([]string, len(ideas))
	for i, idea := range ideas {
		out[i] = idea.URL
	}
	return out
}

func seed(t *testing.T, s *Service) {
	t.Helper()
	for _, r := range []analysis.Result{
		result("https://instagram.com/reel/bbb", 2*time.Hour, "Travel", "Sunset"),
		result("https://instagram.com/reel/aaa", 1*time.Hour, "Food"),
		result("https://instagram.com/reel/ccc", 3*time.Hour, "Travel", "Cinematic", "Adventure"),
	} {
		_, err := s.Add(r)
		require.NoError(t, err)
	}
}

func TestAdd(t *testing.T) {
	t.Run("Should prepend ideas with unique ids", func(t *testing.T) {
		s := newTestService(storage.NewMemoryStore())
		first, err := s.Add(result("https://instagram.com/reel/one", 0, "A"))
		require.NoError(t, err)
		second, err := s.Add(result("https://instagram.com/reel/two", 0))
		require.NoError(t, err)

		assert.Equal(t, "reel_1773057600000", first.ID)
		assert.Equal(t, "reel_1773057600001", second.ID)
		assert.Equal(t, []string{}, second.StyleTags)

		list, err := s.List()
		require.NoError(t, err)
		assert.Equal(t, []string{second.ID, first.ID}, []string{list[0].ID, list[1].ID})
	})

	t.Run("Should not reuse stored ids after a restart", func(t *testing.T) {
		store := storage.NewMemoryStore()
		first, err := newTestService(store).Add(result("https://instagram.com/reel/one", 0))
		require.NoError(t, err)
		second, err := newTestService(store).Add(result("https://instagram.com/reel/two", 0))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("Should reject results without a reel URL", func(t *testing.T) {
		_, err := newTestService(storage.NewMemoryStore()).Add(analysis.Result{StyleDescription: "x"})
		var vErr *apperr.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestRemoveAndGet(t *testing.T) {
	s := newTestService(storage.NewMemoryStore())
	idea, err := s.Add(result("https://instagram.com/reel/one", 0))
	require.NoError(t, err)

	t.Run("Should get by id", func(t *testing.T) {
		got, err := s.Get(idea.ID)
		require.NoError(t, err)
		assert.Equal(t, idea.URL, got.URL)
	})

	t.Run("Should remove by id", func(t *testing.T) {
		require.NoError(t, s.Remove(idea.ID))
		_, err := s.Get(idea.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Should report removing an unknown id", func(t *testing.T) {
		assert.ErrorIs(t, s.Remove("reel_0"), apperr.ErrNotFound)
	})
}

func TestQuery(t *testing.T) {
	s := newTestService(storage.NewMemoryStore())
	seed(t, s)

	t.Run("Should sort newest first by default", func(t *testing.T) {
		got, err := s.Query(Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://instagram.com/reel/aaa", "https://instagram.com/reel/bbb", "https://instagram.com/reel/ccc"}, ids(got))
	})

	t.Run("Should sort oldest, alphabetical and by tag count", func(t *testing.T) {
		got, _ := s.Query(Query{Sort: SortOldest})
		assert.Equal(t, "https://instagram.com/reel/ccc", got[0].URL)

		got, _ = s.Query(Query{Sort: SortAlphabetical})
		assert.Equal(t, []string{"https://instagram.com/reel/aaa", "https://instagram.com/reel/bbb", "https://instagram.com/reel/ccc"}, ids(got))

		got, _ = s.Query(Query{Sort: SortMostTags})
		assert.Equal(t, "https://instagram.com/reel/ccc", got[0].URL)
	})

	t.Run("Should search URL, description and tags", func(t *testing.T) {
		got, _ := s.Query(Query{Search: "SUNSET"})
		assert.Equal(t, []string{"https://instagram.com/reel/bbb"}, ids(got))

		got, _ = s.Query(Query{Search: "desc for https://instagram.com/reel/aaa"})
		assert.Len(t, got, 1)
	})

	t.Run("Should require every selected tag", func(t *testing.T) {
		got, _ := s.Query(Query{Tags: []string{"Travel"}})
		assert.Len(t, got, 2)

		got, _ = s.Query(Query{Tags: []string{"Travel", "Cinematic"}})
		assert.Equal(t, []string{"https://instagram.com/reel/ccc"}, ids(got))
	})

	t.Run("Should list sorted unique tags", func(t *testing.T) {
		tags, err := s.AvailableTags()
		require.NoError(t, err)
		assert.Equal(t, []string{"Adventure", "Cinematic", "Food", "Sunset", "Travel"}, tags)
	})
}

func TestExportAndSelect(t *testing.T) {
	store := storage.NewMemoryStore()
	s := newTestService(store)
	seed(t, s)

	t.Run("Should export indented JSON", func(t *testing.T) {
		name, data, err := s.ExportJSON()
		require.NoError(t, err)
		assert.Equal(t, "reel-ideas-2026-03-09.json", name)
		assert.Contains(t, string(data), "\n  {")

		var decoded []Idea
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Len(t, decoded, 3)
	})

	t.Run("Should remember the selected idea", func(t *testing.T) {
		_, found, err := s.Selected()
		require.NoError(t, err)
		assert.False(t, found)

		list, _ := s.List()
		_, err = s.Select(list[1].ID)
		require.NoError(t, err)

		selected, found, err := newTestService(store).Selected()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, list[1].ID, selected.ID)
	})
}
