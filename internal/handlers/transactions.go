package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/commands"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
	"chunkabank-bot/internal/validation"
)

var errTransactionsFormat = errors.New("invalid transactions command format")

// TransactionsCommand shows the transaction history of the user
type TransactionsCommand struct{}

func (TransactionsCommand) Prefix() string { return commands.ShowTransactions }

func (TransactionsCommand) Matches(normalized string) bool {
	return matchesPrefix(normalized, commands.ShowTransactions)
}

func (TransactionsCommand) IsAllowed(mapping models.UserMapping) bool { return allowAll(mapping) }

func (TransactionsCommand) New(session Session) InteractionHandler {
	return &TransactionsHandler{baseHandler: newBaseHandler(session)}
}

// TransactionsHandler handles show transactions last <n> and show transactions [from <date>] [to <date>]
type TransactionsHandler struct {
	baseHandler
}

// HandleMessage answers in a single step
func (h *TransactionsHandler) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	parts := helpers.SplitMessage(msg.Content)
	prefixLen := len(helpers.SplitMessage(commands.ShowTransactions))
	formats := helpers.FormatUsage(commands.TransactionsLastFormat, commands.TransactionsDateFormat)

	if len(parts) == prefixLen {
		return true, h.reply(ctx, "Please use one of the following formats:\n  "+
			commands.TransactionsLastFormat+"\n  "+commands.TransactionsDateFormat)
	}

	query, err := h.parseQuery(parts, prefixLen)
	if err != nil {
		if errors.Is(err, errTransactionsFormat) {
			return true, h.reply(ctx, formats)
		}
		return true, h.reply(ctx, paramErrorMessage(parts, err))
	}

	transactions, err := h.Ledger.Transactions(ctx, h.UserID, query)
	if err != nil {
		text, err := ledgerFailure("get transactions", err)
		if err != nil {
			return true, err
		}
		return true, h.reply(ctx, text)
	}

	if len(transactions) == 0 {
		return true, h.reply(ctx, "No transactions found")
	}

	return true, h.reply(ctx, helpers.FormatTransactionsTable(transactions, h.Location))
}

// parseQuery reads keyword/value pairs following the prefix
func (h *TransactionsHandler) parseQuery(parts []string, offset int) (models.TransactionQuery, error) {
	var query models.TransactionQuery
	args := parts[offset:]
	if len(args)%2 != 0 {
		return query, errTransactionsFormat
	}

	now := h.Now()
	for i := 0; i < len(args); i += 2 {
		index := offset + i + 1
		switch strings.ToLower(args[i]) {
		case commands.KeywordLast:
			n, err := validation.ParsePositiveInt(args[i+1], index)
			if err != nil {
				return query, err
			}
			query.LastN = n
		case commands.KeywordFrom:
			from, err := validation.ParseDate(args[i+1], index, now, h.Location)
			if err != nil {
				return query, err
			}
			query.From = &from
		case commands.KeywordTo:
			to, err := validation.ParseDate(args[i+1], index, now, h.Location)
			if err != nil {
				return query, err
			}
			// the whole end day is included
			to = to.AddDate(0, 0, 1)
			query.To = &to
		default:
			return query, errTransactionsFormat
		}
	}

	return query, nil
}

// CheckExpired never expires
func (h *TransactionsHandler) CheckExpired(context.Context, time.Time) (bool, error) {
	return false, nil
}
