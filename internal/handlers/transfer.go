package handlers

import (
	"context"
	"errors"
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

// transferVariant holds what differs between transfer and deposit
type transferVariant struct {
	prefix             string
	format             string
	defaultDescription func(amount decimal.Decimal, from, to models.UserInfo) string
}

var transferKind = transferVariant{
	prefix: commands.Transfer,
	format: commands.TransferFormat,
	defaultDescription: func(amount decimal.Decimal, from, to models.UserInfo) string {
		return fmt.Sprintf("Transfer %s from '%s' to '%s'", amount, from.ShortName(), to.ShortName())
	},
}

var depositKind = transferVariant{
	prefix: commands.Deposit,
	format: commands.DepositFormat,
	defaultDescription: func(amount decimal.Decimal, _, to models.UserInfo) string {
		return fmt.Sprintf("Deposit %s to '%s' account", amount, to.ShortName())
	},
}

// TransferCommand moves money from the user to another user
type TransferCommand struct{}

func (TransferCommand) Prefix() string { return commands.Transfer }

func (TransferCommand) Matches(normalized string) bool {
	return helpers.FirstToken(normalized) == commands.Transfer
}

func (TransferCommand) IsAllowed(mapping models.UserMapping) bool { return allowAll(mapping) }

func (TransferCommand) New(session Session) InteractionHandler {
	return newTransferHandler(session, transferKind)
}

// DepositCommand is a transfer reserved to admins
type DepositCommand struct{}

func (DepositCommand) Prefix() string { return commands.Deposit }

func (DepositCommand) Matches(normalized string) bool {
	return helpers.FirstToken(normalized) == commands.Deposit
}

func (DepositCommand) IsAllowed(mapping models.UserMapping) bool { return adminOnly(mapping) }

func (DepositCommand) New(session Session) InteractionHandler {
	return newTransferHandler(session, depositKind)
}

// TransferHandler handles <prefix> <amount> to <user> [description] followed by a confirmation
type TransferHandler struct {
	baseHandler
	dialog
	variant     transferVariant
	amount      decimal.Decimal
	to          models.UserInfo
	description string
}

func newTransferHandler(session Session, variant transferVariant) *TransferHandler {
	return &TransferHandler{
		baseHandler: newBaseHandler(session),
		variant:     variant,
	}
}

// HandleMessage drives the transfer dialog
func (h *TransferHandler) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	h.touch(h.Now())
	parts := helpers.SplitMessage(msg.Content)

	var response string
	var err error
	switch h.status {
	case StatusStart:
		if len(parts) == 1 {
			h.status = StatusCompleted
			response = "Please use the following format:\n  " + h.variant.format
		} else {
			response = h.parse(parts)
		}
	case StatusPendingConfirmation:
		response, err = h.handleConfirmation(ctx, msg.Content)
		if err != nil {
			return true, err
		}
	default:
		return true, fmt.Errorf("%s handler received a message in status %d", h.variant.prefix, h.status)
	}

	if err := h.reply(ctx, response); err != nil {
		return true, err
	}
	return h.completed(), nil
}

func (h *TransferHandler) parse(parts []string) string {
	h.status = StatusCompleted
	if len(parts) < 4 {
		return helpers.FormatUsage(h.variant.format)
	}

	amount, err := validation.ParseAmount(parts[1], 1)
	if err != nil {
		return paramErrorMessage(parts, err)
	}
	h.amount = amount

	if !strings.EqualFold(parts[2], commands.KeywordTo) {
		return helpers.FormatUsage(h.variant.format)
	}

	to, message, ok := h.resolveUser(parts[3])
	if !ok {
		return message
	}
	if to.UserID == h.UserID {
		return "You cannot transfer money to yourself"
	}
	h.to = to

	if len(parts) > 4 {
		h.description = helpers.JoinDescription(parts[4:])
	}
	if h.description == "" {
		from, _ := h.Directory.UserInfo(h.UserID)
		h.description = h.variant.defaultDescription(h.amount, from, h.to)
	}

	h.status = StatusPendingConfirmation
	return fmt.Sprintf("You are about to %s %s to %s with description\n%s\n%s",
		h.variant.prefix, h.amount, h.to.PrintableName(), h.description, helpers.ConfirmPrompt)
}

func (h *TransferHandler) handleConfirmation(ctx context.Context, text string) (string, error) {
	switch helpers.ParseConfirmation(text) {
	case helpers.ConfirmationYes:
		h.status = StatusCompleted
		if err := h.Ledger.Transfer(ctx, h.UserID, h.to.UserID, h.amount, h.description); err != nil {
			return ledgerFailure("transfer money", err)
		}
		h.Logger.Infof("User %s transferred %s to %s", h.UserID, h.amount, h.to.UserID)
		return "Money transferred successfully", nil
	case helpers.ConfirmationNo:
		h.status = StatusCompleted
		return "Transfer cancelled", nil
	default:
		return helpers.ConfirmReminder, nil
	}
}

// CheckExpired cancels a confirmation that was not answered in time
func (h *TransferHandler) CheckExpired(ctx context.Context, now time.Time) (bool, error) {
	if !h.expired(now, h.Timeout) {
		return false, nil
	}

	h.status = StatusCompleted
	return true, h.reply(ctx, helpers.ExpiredMessage)
}

// paramErrorMessage renders a parameter error with a marker under the offending token
func paramErrorMessage(parts []string, err error) string {
	var paramErr *apperrors.ParamError
	if errors.As(err, &paramErr) {
		return helpers.FormatParamError(parts, paramErr.Index, paramErr.Message)
	}
	return err.Error()
}
