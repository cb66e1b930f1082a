package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/constants"
	"chunkabank-bot/internal/models"
)

// RedisBookmarkStore keeps poll bookmarks in a Redis hash keyed by chat user id
type RedisBookmarkStore struct {
	client *redis.Client
	key    string
	logger *logrus.Logger
}

// NewRedisBookmarkStore creates a new Redis bookmark store
func NewRedisBookmarkStore(addr, password string, db int, logger *logrus.Logger) *RedisBookmarkStore {
	return &RedisBookmarkStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		key:    constants.BookmarksKey,
		logger: logger,
	}
}

// Ping checks the Redis connection
func (s *RedisBookmarkStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisBookmarkStore) Close() error {
	return s.client.Close()
}

// LoadBookmarks reads every bookmark of the hash
func (s *RedisBookmarkStore) LoadBookmarks(ctx context.Context) (map[string]models.Bookmark, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("get bookmarks: %w", err)
	}

	bookmarks := make(map[string]models.Bookmark, len(fields))
	for userID, data := range fields {
		var bookmark models.Bookmark
		if err := json.Unmarshal([]byte(data), &bookmark); err != nil {
			s.logger.Warnf("Ignoring malformed bookmark of user %s: %v", userID, err)
			continue
		}
		bookmarks[userID] = bookmark
	}
	return bookmarks, nil
}

// SaveBookmarks replaces the hash with the given bookmarks
func (s *RedisBookmarkStore) SaveBookmarks(ctx context.Context, bookmarks map[string]models.Bookmark) error {
	values := make(map[string]interface{}, len(bookmarks))
	for userID, bookmark := range bookmarks {
		data, err := json.Marshal(bookmark)
		if err != nil {
			return fmt.Errorf("marshal bookmark: %w", err)
		}
		values[userID] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save bookmarks: %w", err)
	}
	return nil
}
