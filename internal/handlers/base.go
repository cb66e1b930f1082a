package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/constants"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// Status is the progress of a dialog
type Status int

const (
	// StatusStart is the state before the command was parsed
	StatusStart Status = iota
	// StatusPendingConfirmation waits for a yes/no reply
	StatusPendingConfirmation
	// StatusCompleted means the slot can be freed
	StatusCompleted
)

// InteractionHandler is a dialog bound to a (user, channel) slot
type InteractionHandler interface {
	// HandleMessage processes a message from the slot owner and reports completion
	HandleMessage(ctx context.Context, msg chat.Message) (bool, error)
	// CheckExpired reports whether the dialog timed out; an expired dialog has already notified the user
	CheckExpired(ctx context.Context, now time.Time) (bool, error)
}

// RequestHandler is an interaction started by the bot rather than by the user
type RequestHandler interface {
	InteractionHandler
	// TargetUserID is the user the request is delivered to
	TargetUserID() string
	// InitiateInteraction starts the dialog on the user's direct channel and reports completion
	InitiateInteraction(ctx context.Context, channelID string) (bool, error)
}

// Ledger is the ledger contract seen by handlers, keyed by chat user ids
type Ledger interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal, description string) error
	Transactions(ctx context.Context, userID string, query models.TransactionQuery) ([]models.Transaction, error)
}

// Directory resolves chat users
type Directory interface {
	UserInfo(userID string) (models.UserInfo, bool)
	Search(query string) []models.UserInfo
	Users() []models.UserInfo
}

// Queuer delivers a request to another user once their direct channel is free
type Queuer interface {
	QueueInteraction(ctx context.Context, userID string, handler RequestHandler) error
}

// Dependencies are shared by every handler
type Dependencies struct {
	Ledger       Ledger
	Directory    Directory
	Sender       chat.Sender
	Queue        Queuer
	Logger       *logrus.Logger
	Now          func() time.Time
	Location     *time.Location
	Timeout      time.Duration
	MessageLimit int
}

// Session binds a handler to the user and channel it serves
type Session struct {
	UserID    string
	ChannelID string
	Mapping   models.UserMapping
	*Dependencies
}

// baseHandler provides common functionality for command handlers
type baseHandler struct {
	Session
}

func newBaseHandler(session Session) baseHandler {
	return baseHandler{Session: session}
}

// reply sends a message to the handler's channel
func (h *baseHandler) reply(ctx context.Context, text string) error {
	return sendText(ctx, h.Sender, h.MessageLimit, h.ChannelID, text)
}

// userName renders a user id through the directory
func (h *baseHandler) userName(userID string) string {
	return printableName(h.Directory, userID)
}

// resolveUser searches a single user, returning the reply to send when the search is not conclusive
func (h *baseHandler) resolveUser(query string) (models.UserInfo, string, bool) {
	matches := h.Directory.Search(query)
	switch len(matches) {
	case 0:
		return models.UserInfo{}, fmt.Sprintf(
			"User '%s' not found, please type one of the following users (or part of their name):\n%s",
			query, helpers.FormatUsersTable(h.Directory.Users())), false
	case 1:
		return matches[0], "", true
	default:
		return models.UserInfo{}, fmt.Sprintf(
			"The name '%s' matches multiple users, please specify the user by typing their name or alias:\n%s",
			query, helpers.FormatUsersTable(matches)), false
	}
}

// dialog tracks the status and activity of a confirmation dialog
type dialog struct {
	status       Status
	lastActivity time.Time
}

func (d *dialog) touch(now time.Time) {
	d.lastActivity = now
}

func (d *dialog) expired(now time.Time, timeout time.Duration) bool {
	return d.status == StatusPendingConfirmation && now.Sub(d.lastActivity) > timeout
}

func (d *dialog) completed() bool {
	return d.status == StatusCompleted
}

func sendText(ctx context.Context, sender chat.Sender, limit int, channelID string, text string) error {
	if limit <= 0 {
		limit = constants.DefaultMessageLimit
	}

	for _, part := range helpers.SliceMessage(text, constants.ContinuationMarker, limit) {
		if err := sender.Send(ctx, channelID, part); err != nil {
			return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
		}
	}
	return nil
}

func printableName(directory Directory, userID string) string {
	if info, ok := directory.UserInfo(userID); ok {
		return info.PrintableName()
	}
	return userID
}

// ledgerFailure renders an expected ledger failure for the user.
// Unexpected errors are returned unchanged.
func ledgerFailure(action string, err error) (string, error) {
	var apiErr *apperrors.LedgerAPIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Failed to %s: [%s]%s", action, apiErr.Code, apiErr.Message), nil
	}
	if errors.Is(err, apperrors.ErrNoLedgerUser) {
		return fmt.Sprintf("Failed to %s: %v", action, err), nil
	}
	return "", err
}
