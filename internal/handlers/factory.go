package handlers

import (
	"sort"
	"strings"

	"chunkabank-bot/internal/commands"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// Command is a command variant that creates handlers for matching messages
type Command interface {
	// Prefix is the phrase listed in the help message
	Prefix() string
	// Matches checks a normalized message against the command
	Matches(normalized string) bool
	// IsAllowed checks whether the user may run the command
	IsAllowed(mapping models.UserMapping) bool
	// New creates a handler for the session
	New(session Session) InteractionHandler
}

// HandlerFactory selects the command for a message and creates its handler
type HandlerFactory struct {
	commands []Command
}

// DefaultCommands returns every command in dispatch order
func DefaultCommands() []Command {
	return []Command{
		BalanceCommand{},
		TransferCommand{},
		WithdrawCommand{},
		DepositCommand{},
		TransactionsCommand{},
		ShowUsersCommand{},
	}
}

// NewHandlerFactory creates a factory; a command that matches a greeting phrase is fatal
func NewHandlerFactory(cmds ...Command) (*HandlerFactory, error) {
	for _, cmd := range cmds {
		for _, phrase := range commands.GreetingPhrases {
			if cmd.Matches(phrase) {
				return nil, apperrors.Fatalf("command %q conflicts with greeting phrase %q", cmd.Prefix(), phrase)
			}
		}
	}

	return &HandlerFactory{commands: cmds}, nil
}

// Allowed returns the commands the user may run, in dispatch order
func (f *HandlerFactory) Allowed(mapping models.UserMapping) []Command {
	allowed := make([]Command, 0, len(f.commands))
	for _, cmd := range f.commands {
		if cmd.IsAllowed(mapping) {
			allowed = append(allowed, cmd)
		}
	}
	return allowed
}

// Match returns the first allowed command matching the message
func (f *HandlerFactory) Match(normalized string, mapping models.UserMapping) (Command, bool) {
	for _, cmd := range f.Allowed(mapping) {
		if cmd.Matches(normalized) {
			return cmd, true
		}
	}
	return nil, false
}

// HelpMessage lists the commands available to the user
func (f *HandlerFactory) HelpMessage(mapping models.UserMapping) string {
	allowed := f.Allowed(mapping)
	prefixes := make([]string, 0, len(allowed))
	for _, cmd := range allowed {
		prefixes = append(prefixes, "  "+cmd.Prefix())
	}
	sort.Strings(prefixes)

	return "I can help you with the following commands: \n" + strings.Join(prefixes, "\n")
}

// Reply answers a message that started no command
func (f *HandlerFactory) Reply(normalized string, mapping models.UserMapping) string {
	if helpers.IsGreeting(normalized) {
		return "Hello! I am the Chunka Bank bot. " + f.HelpMessage(mapping)
	}
	return "I do not understand you. " + f.HelpMessage(mapping)
}

// matchesPrefix compares the leading tokens of a message with a command prefix
func matchesPrefix(normalized string, prefix string) bool {
	parts := helpers.SplitMessage(normalized)
	prefixParts := helpers.SplitMessage(prefix)
	if len(parts) < len(prefixParts) {
		return false
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return false
		}
	}
	return true
}

func allowAll(models.UserMapping) bool {
	return true
}

func adminOnly(mapping models.UserMapping) bool {
	return mapping.IsAdmin
}
