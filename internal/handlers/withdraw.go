package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/commands"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/validation"
)

// WithdrawCommand asks another user to send money to the requester
type WithdrawCommand struct{}

func (WithdrawCommand) Prefix() string { return commands.RequestWithdraw }

func (WithdrawCommand) Matches(normalized string) bool {
	return matchesPrefix(normalized, commands.RequestWithdraw)
}

func (WithdrawCommand) IsAllowed(mapping models.UserMapping) bool { return adminOnly(mapping) }

func (WithdrawCommand) New(session Session) InteractionHandler {
	return &WithdrawHandler{baseHandler: newBaseHandler(session)}
}

// WithdrawHandler handles request withdraw <amount> from <user> [description].
// A confirmed request is queued to the counterparty; no money moves until they approve.
type WithdrawHandler struct {
	baseHandler
	dialog
	amount       decimal.Decimal
	counterparty models.UserInfo
	description  string
}

// HandleMessage drives the requester side of the dialog
func (h *WithdrawHandler) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	h.touch(h.Now())
	parts := helpers.SplitMessage(msg.Content)

	var response string
	switch h.status {
	case StatusStart:
		response = h.parse(parts)
	case StatusPendingConfirmation:
		var err error
		response, err = h.handleConfirmation(ctx, msg.Content)
		if err != nil {
			return true, err
		}
	default:
		return true, fmt.Errorf("withdraw handler received a message in status %d", h.status)
	}

	if err := h.reply(ctx, response); err != nil {
		return true, err
	}
	return h.completed(), nil
}

func (h *WithdrawHandler) parse(parts []string) string {
	h.status = StatusCompleted
	prefixLen := len(helpers.SplitMessage(commands.RequestWithdraw))
	if len(parts) < prefixLen+3 {
		return helpers.FormatUsage(commands.RequestWithdrawFormat)
	}

	amount, err := validation.ParseAmount(parts[2], 2)
	if err != nil {
		return paramErrorMessage(parts, err)
	}
	h.amount = amount

	if !strings.EqualFold(parts[3], commands.KeywordFrom) {
		return paramErrorMessage(parts, apperrors.NewParamError(3, "Expected '%s' keyword", commands.KeywordFrom))
	}

	counterparty, message, ok := h.resolveUser(parts[4])
	if !ok {
		return paramErrorMessage(parts, apperrors.NewParamError(4, "%s", message))
	}
	if counterparty.UserID == h.UserID {
		return paramErrorMessage(parts, apperrors.NewParamError(4, "You cannot withdraw money from yourself"))
	}
	h.counterparty = counterparty

	if len(parts) > 5 {
		h.description = helpers.JoinDescription(parts[5:])
	}
	if h.description == "" {
		h.description = fmt.Sprintf("Withdraw %s by %s", h.amount, h.counterparty.ShortName())
	}

	h.status = StatusPendingConfirmation
	return fmt.Sprintf("You are about to request the user %s to confirm a withdrawal of %s with description\n%s\n%s",
		h.counterparty.PrintableName(), h.amount, h.description, helpers.ConfirmPrompt)
}

func (h *WithdrawHandler) handleConfirmation(ctx context.Context, text string) (string, error) {
	switch helpers.ParseConfirmation(text) {
	case helpers.ConfirmationYes:
		h.status = StatusCompleted
		requester, ok := h.Directory.UserInfo(h.UserID)
		if !ok {
			requester = models.UserInfo{UserID: h.UserID, Name: h.UserID}
		}

		approval := NewWithdrawalApproval(h.Dependencies, WithdrawalRequest{
			Requester:    requester,
			Counterparty: h.counterparty,
			Amount:       h.amount,
			Description:  h.description,
		})
		if err := h.Queue.QueueInteraction(ctx, h.counterparty.UserID, approval); err != nil {
			return "", fmt.Errorf("failed to queue withdrawal approval: %w", err)
		}

		h.Logger.Infof("User %s requested a withdrawal of %s from %s", h.UserID, h.amount, h.counterparty.UserID)
		return fmt.Sprintf("Withdraw request has been sent to %s for approval, you will be notified when it is approved",
			h.counterparty.PrintableName()), nil
	case helpers.ConfirmationNo:
		h.status = StatusCompleted
		return "Request cancelled", nil
	default:
		return helpers.ConfirmReminder, nil
	}
}

// CheckExpired cancels a request that the requester did not confirm in time
func (h *WithdrawHandler) CheckExpired(ctx context.Context, now time.Time) (bool, error) {
	if !h.expired(now, h.Timeout) {
		return false, nil
	}

	h.status = StatusCompleted
	return true, h.reply(ctx, helpers.ExpiredMessage)
}
