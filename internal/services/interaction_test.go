package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/chat"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/handlers"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/permissions"
	"chunkabank-bot/internal/testutil"
)

const generalChannel = "general"

type managerFixture struct {
	platform  *testutil.FakePlatform
	ledger    *testutil.MockLedger
	clock     *testutil.FakeClock
	states    *UserStateService
	directory *Directory
	manager   *InteractionManager
}

func newManagerFixture(t *testing.T, debug bool) *managerFixture {
	t.Helper()
	logger := testutil.NewTestLogger()

	f := &managerFixture{
		platform: testutil.NewFakePlatform(
			chat.Member{ID: "1", Name: "alice", DisplayName: "Alice"},
			chat.Member{ID: "2", Name: "bob", DisplayName: "Bob"},
			chat.Member{ID: "99", Name: "ledgerbot", IsBot: true},
		),
		ledger: &testutil.MockLedger{},
		clock:  testutil.NewFakeClock(time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)),
		states: NewUserStateService(logger),
	}

	f.directory = NewDirectory(f.platform, time.Hour, logger)
	require.NoError(t, f.directory.Refresh(context.Background()))

	factory, err := handlers.NewHandlerFactory(handlers.DefaultCommands()...)
	require.NoError(t, err)

	perms := permissions.NewController([]int64{1}, []models.UserMapping{
		{ChatUserID: "1", LedgerUserID: "alice"},
		{ChatUserID: "2", LedgerUserID: "bob"},
	}, logger)

	f.manager = NewInteractionManager(factory, f.states, f.directory, perms, f.ledger, f.platform, InteractionOptions{
		Timeout:  2 * time.Minute,
		Location: time.UTC,
		Debug:    debug,
		Now:      f.clock.Now,
	}, logger)

	return f
}

func (f *managerFixture) say(t *testing.T, userID, channelID, content string) {
	t.Helper()
	require.NoError(t, f.manager.HandleMessage(context.Background(), chat.Message{
		AuthorID:  userID,
		ChannelID: channelID,
		Content:   content,
	}))
}

func TestInteractionManager_TransferEndToEnd(t *testing.T) {
	f := newManagerFixture(t, false)
	f.ledger.On("Transfer", mock.Anything, "1", "2", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(50))
	}), "lunch").Return(nil).Once()

	f.say(t, "1", generalChannel, "transfer 50 to bob lunch")
	prompt := f.platform.Last(generalChannel)
	assert.Contains(t, prompt, "50")
	assert.Contains(t, prompt, "lunch")
	assert.NotNil(t, f.states.GetInteraction("1", generalChannel))

	f.say(t, "1", generalChannel, "y")
	assert.Equal(t, "Money transferred successfully", f.platform.Last(generalChannel))
	assert.Nil(t, f.states.GetInteraction("1", generalChannel))
	f.ledger.AssertExpectations(t)
}

func TestInteractionManager_UnknownMessage(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"greeting", "Hello", "Hello! I am the Chunka Bank bot. "},
		{"unknown", "buy me a pony", "I do not understand you. "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t, false)
			f.say(t, "2", generalChannel, tt.content)

			reply := f.platform.Last(generalChannel)
			assert.True(t, strings.HasPrefix(reply, tt.expected), reply)
			assert.Contains(t, reply, "transfer")
			assert.NotContains(t, reply, "show users")
			assert.Nil(t, f.states.GetInteraction("2", generalChannel))
		})
	}
}

func TestInteractionManager_AdminCommands(t *testing.T) {
	f := newManagerFixture(t, false)

	f.say(t, "1", generalChannel, "show users")
	assert.Contains(t, f.platform.Last(generalChannel), "Alice (alice)")
	assert.NotContains(t, f.platform.Last(generalChannel), "ledgerbot")

	f.say(t, "2", generalChannel, "show users")
	assert.True(t, strings.HasPrefix(f.platform.Last(generalChannel), "I do not understand you."))
}

func TestInteractionManager_ErrorFreesSlot(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		expected string
	}{
		{"generic notice", false, failureNotice},
		{"debug detail", true, failureNotice + "\nconnection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newManagerFixture(t, tt.debug)
			f.ledger.On("Transfer", mock.Anything, "1", "2", mock.Anything, mock.Anything).
				Return(errors.New("connection reset")).Once()

			f.say(t, "1", generalChannel, "transfer 5 to bob")
			f.say(t, "1", generalChannel, "yes")

			assert.Equal(t, tt.expected, f.platform.Last(generalChannel))
			assert.Nil(t, f.states.GetInteraction("1", generalChannel))
		})
	}
}

type panickingRequest struct{}

func (panickingRequest) TargetUserID() string { return "2" }

func (panickingRequest) InitiateInteraction(context.Context, string) (bool, error) {
	panic("boom")
}

func (panickingRequest) HandleMessage(context.Context, chat.Message) (bool, error) { return true, nil }

func (panickingRequest) CheckExpired(context.Context, time.Time) (bool, error) { return false, nil }

func TestInteractionManager_PanicFreesSlot(t *testing.T) {
	f := newManagerFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.manager.QueueInteraction(ctx, "2", panickingRequest{}))
	require.NoError(t, f.manager.DrainQueues(ctx))

	assert.Equal(t, failureNotice, f.platform.Last("dm-2"))
	assert.Nil(t, f.states.GetInteraction("2", "dm-2"))
}

func TestInteractionManager_ExpiresDialogs(t *testing.T) {
	f := newManagerFixture(t, false)
	ctx := context.Background()

	f.say(t, "1", generalChannel, "transfer 5 to bob")
	require.NotNil(t, f.states.GetInteraction("1", generalChannel))

	f.clock.Advance(time.Minute)
	require.NoError(t, f.manager.ExpireInteractions(ctx))
	assert.NotNil(t, f.states.GetInteraction("1", generalChannel))

	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.manager.ExpireInteractions(ctx))
	assert.Equal(t, helpers.ExpiredMessage, f.platform.Last(generalChannel))
	assert.Nil(t, f.states.GetInteraction("1", generalChannel))
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInteractionManager_DeliversQueueInOrder(t *testing.T) {
	f := newManagerFixture(t, false)
	ctx := context.Background()
	deps := f.manager.Dependencies()

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, f.manager.QueueInteraction(ctx, "2", handlers.NewNotification(deps, "2", text)))
	}

	for i := 1; i <= 3; i++ {
		require.NoError(t, f.manager.DrainQueues(ctx))
		assert.Len(t, f.platform.To("dm-2"), i)
	}
	assert.Equal(t, []string{"first", "second", "third"}, f.platform.To("dm-2"))

	require.NoError(t, f.manager.DrainQueues(ctx))
	assert.Len(t, f.platform.To("dm-2"), 3)
}

func TestInteractionManager_WithdrawWaitsForCounterparty(t *testing.T) {
	f := newManagerFixture(t, false)
	ctx := context.Background()

	f.say(t, "1", generalChannel, "request withdraw 30 from bob rent")
	f.say(t, "1", generalChannel, "y")
	assert.Nil(t, f.states.GetInteraction("1", generalChannel))

	require.NoError(t, f.manager.QueueInteraction(ctx, "2",
		handlers.NewNotification(f.manager.Dependencies(), "2", "unrelated news")))

	// the approval occupies bob's direct channel, the notification waits behind it
	require.NoError(t, f.manager.DrainQueues(ctx))
	require.NoError(t, f.manager.DrainQueues(ctx))
	assert.Len(t, f.platform.To("dm-2"), 1)
	assert.Contains(t, f.platform.Last("dm-2"), "is asking you to withdraw 30")

	f.say(t, "2", "dm-2", "nope")
	assert.Equal(t, "Request cancelled", f.platform.Last("dm-2"))
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, f.manager.DrainQueues(ctx))
	assert.Equal(t, "unrelated news", f.platform.Last("dm-2"))
	assert.Contains(t, f.platform.Last("dm-1"), "has rejected your withdraw request")
}

func TestInteractionManager_UndeliveredWithdrawReachesRequester(t *testing.T) {
	f := newManagerFixture(t, false)
	ctx := context.Background()

	f.say(t, "1", generalChannel, "request withdraw 30 from bob rent")
	f.say(t, "1", generalChannel, "y")

	f.platform.ChannelErrs = map[string]error{"dm-2": errors.New("forbidden: bot can't initiate conversation with a user")}
	require.NoError(t, f.manager.DrainQueues(ctx))
	f.platform.ChannelErrs = nil
	assert.Nil(t, f.states.GetInteraction("2", "dm-2"))

	for i := 0; i < 3; i++ {
		require.NoError(t, f.manager.DrainQueues(ctx))
	}
	assert.Equal(t, "Your withdraw request of 30 could not be delivered to Bob (bob)", f.platform.Last("dm-1"))
	assert.Empty(t, f.platform.To("dm-2"))
	f.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	active, pending := f.states.Stats()
	assert.Zero(t, active)
	assert.Zero(t, pending)
}

func TestUserStateService_SingleActiveHandler(t *testing.T) {
	states := NewUserStateService(testutil.NewTestLogger())
	first := handlers.NewNotification(&handlers.Dependencies{}, "1", "a")
	second := handlers.NewNotification(&handlers.Dependencies{}, "1", "b")

	require.NoError(t, states.SetInteraction("1", "c", first))

	err := states.SetInteraction("1", "c", second)
	var stateErr *apperrors.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Same(t, first, states.GetInteraction("1", "c"))

	// other channels of the same user are independent slots
	require.NoError(t, states.SetInteraction("1", "d", second))

	require.NoError(t, states.UnsetInteraction("1", "c"))
	assert.Error(t, states.UnsetInteraction("1", "c"))

	states.QueueRequest("1", "d", first)
	_, ok := states.TryDequeue("1", "d")
	assert.False(t, ok)

	active, pending := states.Stats()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, pending)
}
