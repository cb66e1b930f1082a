package handlers

import (
	"context"
	"fmt"
	"time"

	"chunkabank-bot/internal/chat"
)

// Notification delivers a one-way message and completes immediately
type Notification struct {
	deps   *Dependencies
	userID string
	text   string
}

// NewNotification creates a notification for a user
func NewNotification(deps *Dependencies, userID string, text string) *Notification {
	return &Notification{deps: deps, userID: userID, text: text}
}

// TargetUserID returns the notified user
func (n *Notification) TargetUserID() string {
	return n.userID
}

// Text returns the notification body
func (n *Notification) Text() string {
	return n.text
}

// InitiateInteraction sends the notification
func (n *Notification) InitiateInteraction(ctx context.Context, channelID string) (bool, error) {
	n.deps.Logger.Debugf("Sending notification to user %s", n.userID)
	return true, sendText(ctx, n.deps.Sender, n.deps.MessageLimit, channelID, n.text)
}

// HandleMessage is never expected; the notification is complete once sent
func (n *Notification) HandleMessage(context.Context, chat.Message) (bool, error) {
	return true, fmt.Errorf("notification for user %s does not accept messages", n.userID)
}

// CheckExpired never expires
func (n *Notification) CheckExpired(context.Context, time.Time) (bool, error) {
	return false, nil
}
