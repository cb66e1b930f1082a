package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/commands"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// BalanceCommand shows the balance of the user or, for admins, of another user
type BalanceCommand struct{}

func (BalanceCommand) Prefix() string { return commands.ShowBalance }

func (BalanceCommand) Matches(normalized string) bool {
	return matchesPrefix(normalized, commands.ShowBalance)
}

func (BalanceCommand) IsAllowed(mapping models.UserMapping) bool { return allowAll(mapping) }

func (BalanceCommand) New(session Session) InteractionHandler {
	return &BalanceHandler{baseHandler: newBaseHandler(session)}
}

// BalanceHandler handles show balance [for <user>]
type BalanceHandler struct {
	baseHandler
}

// HandleMessage answers in a single step
func (h *BalanceHandler) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	parts := helpers.SplitMessage(msg.Content)
	userID := h.UserID

	if len(parts) > 2 {
		if !strings.EqualFold(parts[2], commands.KeywordFor) || len(parts) < 4 {
			return true, h.reply(ctx, helpers.FormatUsage(commands.ShowBalanceFormat))
		}

		query := strings.Join(parts[3:], " ")
		matches := h.Directory.Search(query)
		switch {
		case len(matches) == 0:
			return true, h.reply(ctx, fmt.Sprintf("The name '%s' does not match any known user", query))
		case len(matches) > 1:
			return true, h.reply(ctx, fmt.Sprintf(
				"The name '%s' matches multiple users, please specify the user by typing their name or alias:\n%s",
				query, helpers.FormatUsersTable(matches)))
		}

		userID = matches[0].UserID
		if userID != h.UserID && !h.Mapping.IsAdmin {
			return true, h.reply(ctx, "You are not allowed to see the balance for other users")
		}
	}

	balance, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		text, err := ledgerFailure("get balance", err)
		if err != nil {
			return true, err
		}
		return true, h.reply(ctx, text)
	}

	owner := "Your"
	if userID != h.UserID {
		owner = h.userName(userID) + "'s"
	}

	return true, h.reply(ctx, fmt.Sprintf("%s balance is %s", owner, balance.StringFixed(2)))
}

// CheckExpired never expires
func (h *BalanceHandler) CheckExpired(context.Context, time.Time) (bool, error) {
	return false, nil
}
