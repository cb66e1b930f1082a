package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/config"
	"chunkabank-bot/internal/services"
)

func TestSetupBookmarkStore(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	t.Run("file", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{BookmarksPath: filepath.Join(t.TempDir(), "bookmarks.json")}}

		store, closeStore := setupBookmarkStore(cfg, logger)
		require.IsType(t, &services.FileBookmarkStore{}, store)
		require.NotNil(t, closeStore)

		bookmarks, err := store.LoadBookmarks(context.Background())
		require.NoError(t, err)
		assert.Empty(t, bookmarks)
		assert.NotPanics(t, closeStore)
	})

	t.Run("memory", func(t *testing.T) {
		store, closeStore := setupBookmarkStore(&config.Config{}, logger)
		assert.Nil(t, store)
		require.NotNil(t, closeStore)
		assert.NotPanics(t, closeStore)
	})
}
