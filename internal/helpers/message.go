package helpers

import (
	"regexp"
	"strings"

	"chunkabank-bot/internal/commands"
)

// Confirmation is the meaning of a yes/no reply
type Confirmation int

const (
	// ConfirmationUnknown is any reply that is neither yes nor no
	ConfirmationUnknown Confirmation = iota
	// ConfirmationYes accepts the pending action
	ConfirmationYes
	// ConfirmationNo cancels the pending action
	ConfirmationNo
)

const (
	ConfirmPrompt   = "Please confirm by typing yes or y"
	ConfirmReminder = "I did not understand, please confirm by typing yes or cancel by typing no"
	ExpiredMessage  = "Sorry, I think you forgot about me, please start over"
)

var quotesRegex = regexp.MustCompile(`^['"]+|['"]+$`)

// NormalizeMessage trims and lower-cases a message for matching
func NormalizeMessage(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// SplitMessage breaks a message into whitespace separated tokens
func SplitMessage(text string) []string {
	return strings.Fields(text)
}

// FirstToken returns the first token of a message or an empty string
func FirstToken(text string) string {
	parts := SplitMessage(text)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// JoinDescription joins description tokens and strips surrounding quotes
func JoinDescription(parts []string) string {
	return strings.TrimSpace(quotesRegex.ReplaceAllString(strings.Join(parts, " "), ""))
}

// ParseConfirmation interprets a yes/no reply
func ParseConfirmation(text string) Confirmation {
	parts := SplitMessage(NormalizeMessage(text))
	if len(parts) != 1 {
		return ConfirmationUnknown
	}

	switch {
	case contains(commands.ConfirmWords, parts[0]):
		return ConfirmationYes
	case contains(commands.CancelWords, parts[0]):
		return ConfirmationNo
	default:
		return ConfirmationUnknown
	}
}

// IsGreeting checks whether a normalized message is a greeting phrase
func IsGreeting(normalized string) bool {
	return contains(commands.GreetingPhrases, normalized)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
