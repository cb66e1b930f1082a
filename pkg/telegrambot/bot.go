package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/config"
	"chunkabank-bot/internal/constants"
)

const inboxSize = 100

// Bot adapts a Telegram bot to chat.Platform.
// Telegram offers no member enumeration, so members are the group
// administrators plus every user seen speaking or joining.
type Bot struct {
	bot        *telebot.Bot
	groupID    int64
	lockChatID int64
	inbox      chan chat.Message

	mu       sync.Mutex
	members  map[int64]chat.Member
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	logger *logrus.Logger
}

// NewBot creates a new Telegram bot, retrying while the API is unreachable
func NewBot(cfg *config.Config, logger *logrus.Logger) (*Bot, error) {
	settings := telebot.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		// updates are handed to the event loop in arrival order
		Synchronous: true,
		OnError: func(err error, c telebot.Context) {
			logger.Errorf("Telegram bot error: %v", err)
		},
	}

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	var b *telebot.Bot
	err := backoff.RetryNotify(
		func() error {
			var err error
			b, err = telebot.NewBot(settings)
			if errors.Is(err, telebot.ErrUnauthorized) {
				return backoff.Permanent(err)
			}
			return err
		},
		retryPolicy,
		func(err error, next time.Duration) {
			logger.Warnf("Failed to connect to Telegram, retrying in %s: %v", next, err)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newBot(b, cfg, logger), nil
}

func newBot(b *telebot.Bot, cfg *config.Config, logger *logrus.Logger) *Bot {
	bot := &Bot{
		bot:        b,
		groupID:    cfg.Telegram.GroupID,
		lockChatID: cfg.Telegram.LockChatID,
		inbox:      make(chan chat.Message, inboxSize),
		members:    make(map[int64]chat.Member),
		done:       make(chan struct{}),
		logger:     logger,
	}
	bot.setupHandlers()
	return bot
}

// Messages returns the inbound message stream
func (b *Bot) Messages() <-chan chat.Message {
	return b.inbox
}

// Start polls Telegram until ctx is cancelled or Close is called
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting Telegram bot")

	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	// Setup context for graceful shutdown
	go func() {
		<-ctx.Done()
		b.logger.Info("Stopping Telegram bot")
		b.bot.Stop()
	}()

	b.bot.Start()
	return nil
}

// Close stops polling
func (b *Bot) Close() error {
	b.doneOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

// setupHandlers sets up the bot update handlers
func (b *Bot) setupHandlers() {
	b.bot.Use(func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if sender, group := c.Sender(), c.Chat(); sender != nil && group != nil {
				b.logger.Debugf("Received update from %d in chat %d", sender.ID, group.ID)
			}
			return next(c)
		}
	})

	b.bot.Handle(telebot.OnText, b.handleText)
	b.bot.Handle(telebot.OnChannelPost, b.handleText)
	b.bot.Handle(telebot.OnUserJoined, b.handleJoined)
	b.bot.Handle(telebot.OnUserLeft, b.handleLeft)
}

// handleText forwards messages of the served chats to the event loop
func (b *Bot) handleText(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return nil
	}

	direct := msg.Chat.Type == telebot.ChatPrivate
	if !direct && msg.Chat.ID != b.groupID && msg.Chat.ID != b.lockChatID {
		b.logger.Debugf("Ignoring message from unserved chat %d", msg.Chat.ID)
		return nil
	}

	authorID := ""
	if msg.Sender != nil {
		if msg.Sender.IsBot && msg.Chat.ID != b.lockChatID {
			return nil
		}
		authorID = strconv.FormatInt(msg.Sender.ID, 10)
		if msg.Chat.ID == b.groupID {
			b.track(msg.Sender)
		}
	}

	select {
	case b.inbox <- chat.Message{
		AuthorID:  authorID,
		ChannelID: strconv.FormatInt(msg.Chat.ID, 10),
		Content:   msg.Text,
		IsDirect:  direct,
	}:
	case <-b.done:
	}
	return nil
}

func (b *Bot) handleJoined(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.ID != b.groupID {
		return nil
	}

	if msg.UserJoined != nil {
		b.track(msg.UserJoined)
	}
	for i := range msg.UsersJoined {
		b.track(&msg.UsersJoined[i])
	}
	return nil
}

func (b *Bot) handleLeft(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.ID != b.groupID || msg.UserLeft == nil {
		return nil
	}

	b.mu.Lock()
	delete(b.members, msg.UserLeft.ID)
	b.mu.Unlock()
	b.logger.Infof("User %d left the group", msg.UserLeft.ID)
	return nil
}

func (b *Bot) track(user *telebot.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[user.ID] = toMember(user)
}

func toMember(user *telebot.User) chat.Member {
	name := user.Username
	if name == "" {
		name = user.FirstName
	}
	return chat.Member{
		ID:          strconv.FormatInt(user.ID, 10),
		Name:        name,
		Nickname:    user.FirstName,
		DisplayName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		IsBot:       user.IsBot,
	}
}

// Members lists the group administrators and the users seen in the group
func (b *Bot) Members(_ context.Context) ([]chat.Member, error) {
	admins, err := b.bot.AdminsOf(&telebot.Chat{ID: b.groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to get administrators of chat %d: %w", b.groupID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, admin := range admins {
		if admin.User != nil {
			b.members[admin.User.ID] = toMember(admin.User)
		}
	}

	members := make([]chat.Member, 0, len(b.members))
	for _, member := range b.members {
		members = append(members, member)
	}
	return members, nil
}

// DirectChannel returns the private chat of a user, which shares the user id
func (b *Bot) DirectChannel(_ context.Context, userID string) (string, error) {
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		return "", fmt.Errorf("invalid Telegram user id %q", userID)
	}
	return userID, nil
}

// Groups returns the configured group; Telegram cannot list the chats a bot joined
func (b *Bot) Groups(_ context.Context) ([]chat.Group, error) {
	group, err := b.bot.ChatByID(b.groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", b.groupID, err)
	}
	return []chat.Group{{ID: strconv.FormatInt(group.ID, 10), Name: group.Title}}, nil
}

// FindChannel returns the configured lock chat for the lock channel name
func (b *Bot) FindChannel(_ context.Context, _ string, name string) (string, bool, error) {
	if name != constants.LockChannelName || b.lockChatID == 0 {
		return "", false, nil
	}
	return strconv.FormatInt(b.lockChatID, 10), true, nil
}

// CreateRestrictedChannel is not available to Telegram bots
func (b *Bot) CreateRestrictedChannel(_ context.Context, _ string, name string) (string, error) {
	return "", fmt.Errorf("cannot create channel %s: %w", name, chat.ErrUnsupported)
}

// Send sends a text message to a chat
func (b *Bot) Send(_ context.Context, channelID string, text string) error {
	id, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid Telegram chat id %q", channelID)
	}

	if _, err := b.bot.Send(telebot.ChatID(id), text); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", id, err)
	}
	return nil
}

// MessageLimit returns the Telegram text message limit
func (b *Bot) MessageLimit() int {
	return constants.TelegramMessageLimit
}
