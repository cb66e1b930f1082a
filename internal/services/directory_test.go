package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/chat"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/permissions"
	"chunkabank-bot/internal/testutil"
)

func TestDirectory_Refresh(t *testing.T) {
	platform := testutil.NewFakePlatform(
		chat.Member{ID: "1", Name: "alice", DisplayName: "Alice"},
		chat.Member{ID: "2", Name: "bob", Nickname: "bobcat"},
		chat.Member{ID: "9", Name: "helper", IsBot: true},
	)
	directory := NewDirectory(platform, time.Hour, testutil.NewTestLogger())
	ctx := context.Background()

	require.NoError(t, directory.Refresh(ctx))
	assert.Equal(t, 2, directory.Count())

	channel, err := directory.DirectChannel(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "dm-2", channel)

	platform.MemberList = []chat.Member{
		{ID: "2", Name: "bob", Nickname: "bobcat", DisplayName: "Bobby Tables"},
	}
	require.NoError(t, directory.Refresh(ctx))

	_, found := directory.UserInfo("1")
	assert.False(t, found)

	bob, found := directory.UserInfo("2")
	require.True(t, found)
	assert.Equal(t, "Bobby Tables", bob.DisplayName)
	assert.Equal(t, "dm-2", bob.DirectChannelID)

	platform.MembersErr = errors.New("unavailable")
	assert.Error(t, directory.Refresh(ctx))
	assert.Equal(t, 1, directory.Count())
}

func TestDirectory_Search(t *testing.T) {
	platform := testutil.NewFakePlatform(
		chat.Member{ID: "1", Name: "bob", DisplayName: "Bob"},
		chat.Member{ID: "2", Name: "bobby", DisplayName: "Bobby"},
		chat.Member{ID: "3", Name: "carol", Nickname: "cc", DisplayName: "Carol"},
	)
	directory := NewDirectory(platform, time.Hour, testutil.NewTestLogger())
	require.NoError(t, directory.Refresh(context.Background()))

	tests := []struct {
		query    string
		expected []string
	}{
		{"bob", []string{"1"}},
		{"bo", []string{"1", "2"}},
		{"CC", []string{"3"}},
		{"dave", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var ids []string
			for _, u := range directory.Search(tt.query) {
				ids = append(ids, u.UserID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	users := directory.Users()
	require.Len(t, users, 3)
	assert.Equal(t, "Bob", users[0].DisplayName)
	assert.Equal(t, "Carol", users[2].DisplayName)
}

type stubLedgerClient struct {
	mock.Mock
}

func (s *stubLedgerClient) GetBalance(ctx context.Context, ledgerUserID string) (decimal.Decimal, error) {
	args := s.Called(ctx, ledgerUserID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (s *stubLedgerClient) Transfer(ctx context.Context, from, to string, amount decimal.Decimal, description string) error {
	return s.Called(ctx, from, to, amount, description).Error(0)
}

func (s *stubLedgerClient) GetTransactions(ctx context.Context, ledgerUserID string, query models.TransactionQuery) ([]models.Transaction, error) {
	args := s.Called(ctx, ledgerUserID, query)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func TestLedgerService_MapsAccounts(t *testing.T) {
	client := &stubLedgerClient{}
	mapper := permissions.NewController(nil, []models.UserMapping{
		{ChatUserID: "1", LedgerUserID: "acct-alice"},
		{ChatUserID: "2", LedgerUserID: "acct-bob"},
	}, testutil.NewTestLogger())
	ledger := NewLedgerService(client, mapper, testutil.NewTestLogger())
	ctx := context.Background()
	amount := decimal.NewFromInt(12)

	client.On("GetBalance", mock.Anything, "acct-alice").Return(decimal.NewFromInt(40), nil)
	client.On("Transfer", mock.Anything, "acct-alice", "acct-bob", amount, "gift").Return(nil)
	client.On("GetTransactions", mock.Anything, "acct-bob", models.TransactionQuery{LastN: 3}).
		Return([]models.Transaction{{ID: "x"}}, nil)

	balance, err := ledger.Balance(ctx, "1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(balance))

	require.NoError(t, ledger.Transfer(ctx, "1", "2", amount, "gift"))

	transactions, err := ledger.Transactions(ctx, "2", models.TransactionQuery{LastN: 3})
	require.NoError(t, err)
	assert.Len(t, transactions, 1)

	_, err = ledger.Balance(ctx, "5")
	assert.ErrorIs(t, err, apperrors.ErrNoLedgerUser)
	assert.ErrorIs(t, ledger.Transfer(ctx, "1", "5", amount, "gift"), apperrors.ErrNoLedgerUser)

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "Transfer", 1)
}
