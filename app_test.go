package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp(t *testing.T) {
	t.Run("Should report a missing runtime context before startup", func(t *testing.T) {
		app := NewApp()
		_, err := app.runtimeContext()
		require.Error(t, err)

		_, err = app.AnalyzeReel("https://www.instagram.com/reel/abc123/")
		assert.Error(t, err)
	})

	t.Run("Should ignore events emitted before startup", func(t *testing.T) {
		app := NewApp()
		assert.NotPanics(t, func() { app.emit(eventExport, nil) })
	})

	t.Run("Should tolerate shutdown without startup", func(t *testing.T) {
		app := NewApp()
		assert.NotPanics(t, func() { app.shutdown(context.Background()) })
	})
}
