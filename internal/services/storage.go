package services

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/models"
)

// StorageData represents the JSON structure stored in the bookmarks file
type StorageData struct {
	Bookmarks map[string]models.Bookmark `json:"bookmarks"`
}

// FileBookmarkStore keeps poll bookmarks in a JSON file
type FileBookmarkStore struct {
	filename string
	mu       sync.Mutex
	logger   *logrus.Logger
}

// NewFileBookmarkStore creates a new file bookmark store
func NewFileBookmarkStore(filename string, logger *logrus.Logger) *FileBookmarkStore {
	return &FileBookmarkStore{
		filename: filename,
		logger:   logger,
	}
}

// LoadBookmarks reads bookmarks from the JSON file
func (s *FileBookmarkStore) LoadBookmarks(_ context.Context) (map[string]models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filename)
	if os.IsNotExist(err) {
		s.logger.Info("Bookmarks file does not exist, starting with empty bookmarks")
		return map[string]models.Bookmark{}, nil
	}
	if err != nil {
		return nil, err
	}

	var stored StorageData
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	if stored.Bookmarks == nil {
		stored.Bookmarks = map[string]models.Bookmark{}
	}
	return stored.Bookmarks, nil
}

// SaveBookmarks writes bookmarks to the JSON file atomically
func (s *FileBookmarkStore) SaveBookmarks(_ context.Context, bookmarks map[string]models.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(StorageData{Bookmarks: bookmarks}, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := s.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, s.filename)
}
