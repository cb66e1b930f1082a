package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/chat"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/testutil"
)

type updatesFixture struct {
	ledger  *testutil.MockLedger
	queue   *testutil.RecordingQueue
	clock   *testutil.FakeClock
	deps    *handlers.Dependencies
	updates *UpdatesManager
}

func newUpdatesFixture(store BookmarkStore, users ...models.UserInfo) *updatesFixture {
	f := &updatesFixture{
		ledger: &testutil.MockLedger{},
		queue:  &testutil.RecordingQueue{},
		clock:  testutil.NewFakeClock(time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)),
	}
	f.deps = &handlers.Dependencies{
		Ledger:       f.ledger,
		Directory:    testutil.NewStaticDirectory(users...),
		Sender:       &testutil.RecordingSender{},
		Queue:        f.queue,
		Logger:       testutil.NewTestLogger(),
		Now:          f.clock.Now,
		Location:     time.UTC,
		Timeout:      2 * time.Minute,
		MessageLimit: 2000,
	}
	f.updates = NewUpdatesManager(f.deps, store, f.deps.Logger)
	return f
}

func transaction(id string, amount int64, at time.Time) models.Transaction {
	return models.Transaction{
		ID:          id,
		Amount:      decimal.NewFromInt(amount),
		Timestamp:   at,
		Description: fmt.Sprintf("tx %s", id),
	}
}

func sinceQuery(from time.Time) interface{} {
	return mock.MatchedBy(func(q models.TransactionQuery) bool {
		return q.From != nil && q.From.Equal(from) && q.To == nil && q.LastN == 0
	})
}

func TestPollUpdates_ReportsOnlyNewTransactions(t *testing.T) {
	alice := testutil.NewTestUser("1", "alice", "Alice")
	f := newUpdatesFixture(nil, alice)
	ctx := context.Background()
	start := f.clock.Now()
	tx1 := transaction("t1", 20, start.Add(time.Second))

	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(start)).
		Return([]models.Transaction{tx1}, nil).Once()

	require.NoError(t, f.updates.PollUpdates(ctx))
	require.Len(t, f.queue.Requests, 1)

	notification, ok := f.queue.Requests[0].Handler.(*handlers.Notification)
	require.True(t, ok)
	assert.Equal(t, "1", f.queue.Requests[0].UserID)
	assert.Contains(t, notification.Text(), "The following transactions were reported in your account:\n")
	assert.Contains(t, notification.Text(), "t1")

	bookmark, ok := f.updates.Bookmark("1")
	require.True(t, ok)
	assert.Equal(t, start, bookmark.LastPoll)
	assert.Equal(t, []string{"t1"}, bookmark.TransactionIDs)

	// the boundary transaction comes back on the next poll and must not be reported again
	f.clock.Advance(10 * time.Second)
	second := f.clock.Now()
	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(start)).
		Return([]models.Transaction{tx1}, nil).Once()
	require.NoError(t, f.updates.PollUpdates(ctx))
	assert.Len(t, f.queue.Requests, 1)

	f.clock.Advance(10 * time.Second)
	tx2 := transaction("t2", -5, second.Add(time.Second))
	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(second)).
		Return([]models.Transaction{tx2}, nil).Once()
	require.NoError(t, f.updates.PollUpdates(ctx))
	require.Len(t, f.queue.Requests, 2)

	latest := f.queue.Requests[1].Handler.(*handlers.Notification)
	assert.Contains(t, latest.Text(), "t2")
	assert.NotContains(t, latest.Text(), "t1")
	f.ledger.AssertExpectations(t)
}

func TestPollUpdates_SkipsUsersWithoutLedgerAccount(t *testing.T) {
	alice := testutil.NewTestUser("1", "alice", "Alice")
	guest := testutil.NewTestUser("5", "guest", "Guest")
	f := newUpdatesFixture(nil, alice, guest)

	f.ledger.On("Transactions", mock.Anything, "5", mock.Anything).
		Return(nil, fmt.Errorf("chat user 5: %w", apperrors.ErrNoLedgerUser))
	f.ledger.On("Transactions", mock.Anything, "1", mock.Anything).
		Return([]models.Transaction{}, nil)

	require.NoError(t, f.updates.PollUpdates(context.Background()))
	assert.Empty(t, f.queue.Requests)
	assert.Equal(t, 2, f.updates.TrackedUsers())
}

func TestPollUpdates_LedgerErrorSkipsOnlyThatUser(t *testing.T) {
	store := &testutil.MockBookmarkStore{}
	f := newUpdatesFixture(store,
		testutil.NewTestUser("1", "alice", "Alice"),
		testutil.NewTestUser("2", "bob", "Bob"),
	)
	ctx := context.Background()
	start := f.clock.Now()

	store.On("SaveBookmarks", mock.Anything, mock.MatchedBy(func(b map[string]models.Bookmark) bool {
		return len(b) == 2
	})).Return(nil).Twice()
	f.ledger.On("Transactions", mock.Anything, mock.Anything, sinceQuery(start)).
		Return([]models.Transaction{}, nil).Twice()
	require.NoError(t, f.updates.PollUpdates(ctx))

	f.clock.Advance(10 * time.Second)
	f.ledger.On("Transactions", mock.Anything, "1", mock.Anything).Return(nil, errors.New("timeout")).Once()
	f.ledger.On("Transactions", mock.Anything, "2", sinceQuery(start)).
		Return([]models.Transaction{transaction("t1", 5, start.Add(time.Second))}, nil).Once()

	err := f.updates.PollUpdates(ctx)
	require.Error(t, err)
	assert.False(t, apperrors.IsFatal(err))
	assert.Contains(t, err.Error(), "user 1")

	require.Len(t, f.queue.Requests, 1)
	assert.Equal(t, "2", f.queue.Requests[0].UserID)

	// the failed user keeps its bookmark and retries the same window
	bookmark, ok := f.updates.Bookmark("1")
	require.True(t, ok)
	assert.Equal(t, start, bookmark.LastPoll)

	bookmark, ok = f.updates.Bookmark("2")
	require.True(t, ok)
	assert.Equal(t, f.clock.Now(), bookmark.LastPoll)

	store.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestPollUpdates_DirectoryOutageKeepsBookmarks(t *testing.T) {
	platform := testutil.NewFakePlatform(chat.Member{ID: "1", Name: "alice", DisplayName: "Alice"})
	directory := NewDirectory(platform, time.Second, testutil.NewTestLogger())
	ctx := context.Background()
	require.NoError(t, directory.Refresh(ctx))

	f := newUpdatesFixture(nil)
	f.deps.Directory = directory
	start := f.clock.Now()

	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(start)).
		Return([]models.Transaction{}, nil).Once()
	require.NoError(t, f.updates.PollUpdates(ctx))

	platform.MembersErr = errors.New("telegram unavailable")
	assert.Error(t, directory.Refresh(ctx))
	assert.True(t, directory.Stale(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, directory.Count())

	f.clock.Advance(40 * time.Second)
	during := transaction("t-outage", -30, f.clock.Now())
	f.clock.Advance(20 * time.Second)

	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(start)).
		Return([]models.Transaction{during}, nil).Once()
	require.NoError(t, f.updates.PollUpdates(ctx))

	assert.Equal(t, 1, f.updates.TrackedUsers())
	require.Len(t, f.queue.Requests, 1)
	assert.Contains(t, f.queue.Requests[0].Handler.(*handlers.Notification).Text(), "t-outage")

	platform.MembersErr = nil
	require.NoError(t, directory.Refresh(ctx))
	assert.False(t, directory.Stale(time.Now()))
	f.ledger.AssertExpectations(t)
}

func TestPollUpdates_PersistsBookmarks(t *testing.T) {
	store := &testutil.MockBookmarkStore{}
	f := newUpdatesFixture(store, testutil.NewTestUser("1", "alice", "Alice"))
	ctx := context.Background()
	restored := f.clock.Now().Add(-time.Hour)

	store.On("LoadBookmarks", mock.Anything).Return(map[string]models.Bookmark{
		"1": {LastPoll: restored, TransactionIDs: []string{"old"}},
		"7": {LastPoll: restored},
	}, nil).Once()
	require.NoError(t, f.updates.Restore(ctx))

	f.ledger.On("Transactions", mock.Anything, "1", sinceQuery(restored)).
		Return([]models.Transaction{transaction("old", 1, restored)}, nil).Once()
	store.On("SaveBookmarks", mock.Anything, mock.MatchedBy(func(b map[string]models.Bookmark) bool {
		_, departed := b["7"]
		return len(b) == 1 && !departed && b["1"].LastPoll.Equal(f.clock.Now())
	})).Return(nil).Once()

	require.NoError(t, f.updates.PollUpdates(ctx))
	assert.Empty(t, f.queue.Requests)
	store.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}
