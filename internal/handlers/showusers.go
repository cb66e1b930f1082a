package handlers

import (
	"context"
	"time"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/commands"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// ShowUsersCommand lists the users known to the bot
type ShowUsersCommand struct{}

func (ShowUsersCommand) Prefix() string { return commands.ShowUsers }

func (ShowUsersCommand) Matches(normalized string) bool {
	return matchesPrefix(normalized, commands.ShowUsers)
}

func (ShowUsersCommand) IsAllowed(mapping models.UserMapping) bool { return adminOnly(mapping) }

func (ShowUsersCommand) New(session Session) InteractionHandler {
	return &ShowUsersHandler{baseHandler: newBaseHandler(session)}
}

// ShowUsersHandler handles show users
type ShowUsersHandler struct {
	baseHandler
}

func (h *ShowUsersHandler) HandleMessage(ctx context.Context, _ chat.Message) (bool, error) {
	return true, h.reply(ctx, "Users:\n"+helpers.FormatUsersTable(h.Directory.Users()))
}

func (h *ShowUsersHandler) CheckExpired(context.Context, time.Time) (bool, error) {
	return false, nil
}
