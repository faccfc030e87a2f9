package templates

import (
	"testing"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(storage.NewMemoryStore(), config.Discard())
	require.NoError(t, err)
	return s
}

func ids(templates []Template) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = t.ID
	}
	return out
}

func TestCatalog(t *testing.T) {
	t.Run("Should load six templates with vertical output", func(t *testing.T) {
		s := newTestService(t)
		list := s.List()
		require.Len(t, list, 6)
		for _, tmpl := range list {
			assert.Equal(t, "1080x1920", tmpl.OutputSpecs.Resolution)
			assert.Equal(t, 30, tmpl.OutputSpecs.FPS)
			assert.NotEmpty(t, tmpl.Effects)
		}
		assert.Equal(t, []string{"travel", "business", "creative", "social"}, s.Categories())
	})

	t.Run("Should reject duplicate ids", func(t *testing.T) {
		_, err := parseCatalog([]byte("- id: a\n- id: a\n"))
		assert.Error(t, err)
	})

	t.Run("Should report unknown templates", func(t *testing.T) {
		_, err := newTestService(t).Get("nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Should match supported formats case-insensitively", func(t *testing.T) {
		tmpl, err := newTestService(t).Get("talking_captions")
		require.NoError(t, err)
		assert.True(t, tmpl.Supports("mov"))
		assert.False(t, tmpl.Supports("JPG"))
	})
}

func TestFilter(t *testing.T) {
	s := newTestService(t)

	t.Run("Should return everything for an empty filter", func(t *testing.T) {
		assert.Len(t, s.Filter(Filter{Category: FilterAll, MediaType: FilterAll}), 6)
	})

	t.Run("Should search names, effects and use cases", func(t *testing.T) {
		assert.Equal(t, []string{"travel_kenburns"}, ids(s.Filter(Filter{Search: "ken burns"})))
		assert.Equal(t, []string{"social_stories"}, ids(s.Filter(Filter{Search: "TIKTOK"})))
		assert.Equal(t, []string{"talking_captions"}, ids(s.Filter(Filter{Search: "captions"})))
	})

	t.Run("Should combine category and media type", func(t *testing.T) {
		assert.Equal(t, []string{"creative_slideshow", "artistic_gallery"}, ids(s.Filter(Filter{Category: "creative"})))
		assert.Equal(t, []string{"artistic_gallery"}, ids(s.Filter(Filter{Category: "creative", MediaType: "image"})))
		assert.Empty(t, s.Filter(Filter{Category: "travel", MediaType: "video"}))
	})
}

func TestSelection(t *testing.T) {
	t.Run("Should default to travel_kenburns", func(t *testing.T) {
		selected, err := newTestService(t).Selected()
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplateID, selected.ID)
	})

	t.Run("Should persist the selection", func(t *testing.T) {
		store := storage.NewMemoryStore()
		s, err := NewService(store, config.Discard())
		require.NoError(t, err)

		_, err = s.Select("business_promo")
		require.NoError(t, err)

		reloaded, err := NewService(store, config.Discard())
		require.NoError(t, err)
		selected, err := reloaded.Selected()
		require.NoError(t, err)
		assert.Equal(t, "business_promo", selected.ID)
	})

	t.Run("Should refuse unknown templates", func(t *testing.T) {
		_, err := newTestService(t).Select("missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Should fall back when the stored selection is stale", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(storage.KeySelectedTemplate, "retired_template"))
		s, err := NewService(store, config.Discard())
		require.NoError(t, err)

		selected, err := s.Selected()
		require.NoError(t, err)
		assert.Equal(t, DefaultTemplateID, selected.ID)
	})
}
