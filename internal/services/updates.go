package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

const transactionsNotificationHeader = "The following transactions were reported in your account:\n"

// BookmarkStore persists the poll bookmarks between restarts
type BookmarkStore interface {
	LoadBookmarks(ctx context.Context) (map[string]models.Bookmark, error)
	SaveBookmarks(ctx context.Context, bookmarks map[string]models.Bookmark) error
}

// UpdatesManager polls the ledger and notifies users of new transactions
type UpdatesManager struct {
	deps      *handlers.Dependencies
	store     BookmarkStore
	bookmarks map[string]models.Bookmark
	logger    *logrus.Logger
}

// NewUpdatesManager creates an updates manager. store may be nil.
func NewUpdatesManager(deps *handlers.Dependencies, store BookmarkStore, logger *logrus.Logger) *UpdatesManager {
	return &UpdatesManager{
		deps:      deps,
		store:     store,
		bookmarks: make(map[string]models.Bookmark),
		logger:    logger,
	}
}

// Register adds polling to the slow tick
func (u *UpdatesManager) Register(registrar TaskRegistrar) {
	registrar.Register(CadenceSlow, "poll-updates", u.PollUpdates)
}

// Restore loads persisted bookmarks
func (u *UpdatesManager) Restore(ctx context.Context) error {
	if u.store == nil {
		return nil
	}

	bookmarks, err := u.store.LoadBookmarks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}
	for userID, bookmark := range bookmarks {
		u.bookmarks[userID] = bookmark
	}

	u.logger.Infof("Restored %d bookmarks", len(bookmarks))
	return nil
}

// Bookmark returns the bookmark of a user
func (u *UpdatesManager) Bookmark(userID string) (models.Bookmark, bool) {
	b, ok := u.bookmarks[userID]
	return b, ok
}

// TrackedUsers returns the number of users being polled
func (u *UpdatesManager) TrackedUsers() int {
	return len(u.bookmarks)
}

// PollUpdates reports the transactions each user has not seen yet
func (u *UpdatesManager) PollUpdates(ctx context.Context) error {
	u.refreshUsers()

	var failures []error
	for userID, bookmark := range u.bookmarks {
		now := u.deps.Now()
		from := bookmark.LastPoll

		transactions, err := u.deps.Ledger.Transactions(ctx, userID, models.TransactionQuery{From: &from})
		if errors.Is(err, apperrors.ErrNoLedgerUser) {
			u.logger.Warnf("Skipping updates for user %s: %v", userID, err)
			continue
		}
		if err != nil {
			// the bookmark is kept so the next poll retries the same window
			u.logger.Errorf("Failed to poll transactions of user %s: %v", userID, err)
			failures = append(failures, fmt.Errorf("failed to poll transactions of user %s: %w", userID, err))
			continue
		}

		ids := make([]string, 0, len(transactions))
		fresh := make([]models.Transaction, 0, len(transactions))
		for _, tx := range transactions {
			ids = append(ids, tx.ID)
			if !bookmark.Contains(tx.ID) {
				fresh = append(fresh, tx)
			}
		}

		if len(fresh) > 0 {
			u.logger.Infof("Reporting %d new transactions to user %s", len(fresh), userID)
			text := transactionsNotificationHeader + helpers.FormatTransactionsTable(fresh, u.deps.Location)
			if err := u.deps.Queue.QueueInteraction(ctx, userID, handlers.NewNotification(u.deps, userID, text)); err != nil {
				return fmt.Errorf("failed to queue notification for user %s: %w", userID, err)
			}
		}

		u.bookmarks[userID] = models.Bookmark{LastPoll: now, TransactionIDs: ids}
	}

	if err := u.persist(ctx); err != nil {
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

// refreshUsers starts tracking new directory users from now and drops departed ones
func (u *UpdatesManager) refreshUsers() {
	current := make(map[string]bool)
	for _, user := range u.deps.Directory.Users() {
		current[user.UserID] = true
		if _, ok := u.bookmarks[user.UserID]; !ok {
			u.logger.Debugf("Tracking updates for user %s", user.UserID)
			u.bookmarks[user.UserID] = models.Bookmark{LastPoll: u.deps.Now()}
		}
	}

	for userID := range u.bookmarks {
		if !current[userID] {
			u.logger.Debugf("No longer tracking updates for user %s", userID)
			delete(u.bookmarks, userID)
		}
	}
}

func (u *UpdatesManager) persist(ctx context.Context) error {
	if u.store == nil {
		return nil
	}

	snapshot := make(map[string]models.Bookmark, len(u.bookmarks))
	for userID, bookmark := range u.bookmarks {
		snapshot[userID] = bookmark
	}
	if err := u.store.SaveBookmarks(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	return nil
}
