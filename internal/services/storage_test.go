package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/testutil"
)

func TestFileBookmarkStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	store := NewFileBookmarkStore(path, testutil.NewTestLogger())
	ctx := context.Background()

	empty, err := store.LoadBookmarks(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	polled := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveBookmarks(ctx, map[string]models.Bookmark{
		"1": {LastPoll: polled, TransactionIDs: []string{"t1", "t2"}},
	}))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := NewFileBookmarkStore(path, testutil.NewTestLogger()).LoadBookmarks(ctx)
	require.NoError(t, err)
	require.Contains(t, loaded, "1")
	assert.True(t, polled.Equal(loaded["1"].LastPoll))
	assert.True(t, loaded["1"].Contains("t2"))
}

func TestFileBookmarkStore_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileBookmarkStore(path, testutil.NewTestLogger()).LoadBookmarks(context.Background())
	assert.Error(t, err)
}
