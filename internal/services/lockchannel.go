package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/commands"
	"chunkabank-bot/internal/constants"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// LockChannelManager makes sure a single bot instance serves the group.
// Instances announce themselves with a ping on a control channel; any pong
// to our ping means another instance is connected.
type LockChannelManager struct {
	platform  chat.Platform
	now       func() time.Time
	groupID   string
	channelID string
	nonce     string
	requests  map[string]*models.PingRequest
	logger    *logrus.Logger
}

// NewLockChannelManager creates a new lock channel manager
func NewLockChannelManager(platform chat.Platform, now func() time.Time, logger *logrus.Logger) *LockChannelManager {
	if now == nil {
		now = time.Now
	}
	return &LockChannelManager{
		platform: platform,
		now:      now,
		requests: make(map[string]*models.PingRequest),
		logger:   logger,
	}
}

// Register adds ping purging and group checks to the slow tick
func (l *LockChannelManager) Register(registrar TaskRegistrar) {
	registrar.Register(CadenceSlow, "purge-ping-requests", l.PurgePingRequests)
	registrar.Register(CadenceSlow, "check-groups", l.CheckGroups)
}

// ChannelID returns the control channel, empty before Start
func (l *LockChannelManager) ChannelID() string {
	return l.channelID
}

// PendingRequests returns the number of unanswered ping requests
func (l *LockChannelManager) PendingRequests() int {
	return len(l.requests)
}

// Start resolves the control channel and announces this instance
func (l *LockChannelManager) Start(ctx context.Context) error {
	group, err := l.singleGroup(ctx)
	if err != nil {
		return err
	}
	l.groupID = group.ID

	channelID, found, err := l.platform.FindChannel(ctx, group.ID, constants.LockChannelName)
	if err != nil {
		return fmt.Errorf("failed to look up lock channel: %w", err)
	}
	if !found {
		channelID, err = l.platform.CreateRestrictedChannel(ctx, group.ID, constants.LockChannelName)
		if err != nil {
			return fmt.Errorf("failed to create lock channel: %w", err)
		}
		l.logger.Infof("Created lock channel %s (%s) in group %s (%s)", constants.LockChannelName, channelID, group.Name, group.ID)
	}
	l.channelID = channelID

	l.nonce = uuid.NewString()
	l.requests[l.nonce] = &models.PingRequest{Nonce: l.nonce, RequestTime: l.now()}
	if err := l.platform.Send(ctx, channelID, fmt.Sprintf("%s %s", commands.Ping, l.nonce)); err != nil {
		return fmt.Errorf("failed to send ping: %w", err)
	}

	l.logger.Infof("Sent ping %s on lock channel", l.nonce)
	return nil
}

// HandleMessage consumes control channel messages.
// It reports false for messages of any other channel.
func (l *LockChannelManager) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	if l.channelID == "" || msg.ChannelID != l.channelID {
		return false, nil
	}

	parts := helpers.SplitMessage(helpers.NormalizeMessage(msg.Content))
	if len(parts) == 0 {
		return true, nil
	}

	switch parts[0] {
	case commands.Ping:
		if len(parts) < 2 {
			return true, l.platform.Send(ctx, msg.ChannelID, "Invalid ping: Missing request id")
		}
		if _, ours := l.requests[parts[1]]; ours {
			return true, nil
		}
		l.logger.Infof("Answering ping %s from another instance", parts[1])
		return true, l.platform.Send(ctx, msg.ChannelID, fmt.Sprintf("%s %s", commands.Pong, parts[1]))

	case commands.Pong:
		if len(parts) < 2 {
			return true, l.platform.Send(ctx, msg.ChannelID, "Invalid pong: Missing request id")
		}
		if request, ours := l.requests[parts[1]]; ours {
			request.ResponseCount++
			l.logger.Warnf("Received pong for ping %s", parts[1])
		}
		return true, nil

	case commands.Farewell:
		l.logger.Infof("Another instance left the lock channel")
	}

	return true, nil
}

// PurgePingRequests drops unanswered requests past the timeout.
// An answered request means another instance is connected.
func (l *LockChannelManager) PurgePingRequests(_ context.Context) error {
	now := l.now()
	for nonce, request := range l.requests {
		if request.ResponseCount > 0 {
			return apperrors.Fatalf("another instance is already connected to group %s (ping %s answered %d times)",
				l.groupID, nonce, request.ResponseCount)
		}
		if request.Expired(now, constants.PingRequestTimeout) {
			l.logger.Debugf("Ping %s expired without answers", nonce)
			delete(l.requests, nonce)
		}
	}
	return nil
}

// CheckGroups fails when the bot joined more than one group
func (l *LockChannelManager) CheckGroups(ctx context.Context) error {
	_, err := l.singleGroup(ctx)
	return err
}

// Farewell tells other instances this one is leaving
func (l *LockChannelManager) Farewell(ctx context.Context) error {
	if l.channelID == "" {
		return nil
	}
	return l.platform.Send(ctx, l.channelID, fmt.Sprintf("%s %s", commands.Farewell, l.nonce))
}

func (l *LockChannelManager) singleGroup(ctx context.Context) (chat.Group, error) {
	groups, err := l.platform.Groups(ctx)
	if err != nil {
		return chat.Group{}, fmt.Errorf("failed to list groups: %w", err)
	}

	switch len(groups) {
	case 0:
		return chat.Group{}, apperrors.Fatalf("the bot is not connected to any group")
	case 1:
		return groups[0], nil
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, fmt.Sprintf("  %s (%s)", g.Name, g.ID))
	}
	return chat.Group{}, apperrors.Fatalf("more than one group is not supported, currently connected to:\n%s", strings.Join(names, "\n"))
}
