package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"chunkabank-bot/internal/models"
)

// MockLedger is a mock for handlers.Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Transfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal, description string) error {
	args := m.Called(ctx, fromUserID, toUserID, amount, description)
	return args.Error(0)
}

func (m *MockLedger) Transactions(ctx context.Context, userID string, query models.TransactionQuery) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

// MockBookmarkStore is a mock for services.BookmarkStore
type MockBookmarkStore struct {
	mock.Mock
}

func (m *MockBookmarkStore) LoadBookmarks(ctx context.Context) (map[string]models.Bookmark, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Bookmark), args.Error(1)
}

func (m *MockBookmarkStore) SaveBookmarks(ctx context.Context, bookmarks map[string]models.Bookmark) error {
	args := m.Called(ctx, bookmarks)
	return args.Error(0)
}

// FakeClock is a settable clock
type FakeClock struct {
	Current time.Time
}

// NewFakeClock creates a clock stopped at t
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{Current: t}
}

// Now returns the current fake time
func (c *FakeClock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward
func (c *FakeClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}
