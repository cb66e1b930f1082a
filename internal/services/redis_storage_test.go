package services

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/testutil"
)

func TestRedisBookmarkStore_Close(t *testing.T) {
	// the client dials lazily, so no server is needed to open and close it
	store := NewRedisBookmarkStore("127.0.0.1:0", "", 0, testutil.NewTestLogger())
	require.NoError(t, store.Close())

	ctx := context.Background()
	_, err := store.LoadBookmarks(ctx)
	assert.ErrorIs(t, err, redis.ErrClosed)

	err = store.SaveBookmarks(ctx, map[string]models.Bookmark{"1": {}})
	assert.Error(t, err)
}
