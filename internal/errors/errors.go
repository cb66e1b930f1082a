package errors

import (
	"errors"
	"fmt"
)

// ErrNoLedgerUser is returned when a chat user has no ledger account
var ErrNoLedgerUser = errors.New("user has no ledger account")

// FormatError represents a command typed with the wrong shape
type FormatError struct {
	Usage string
}

// Error returns the error message
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid command format, use: %s", e.Usage)
}

// ParamError represents an invalid command parameter at a token position
type ParamError struct {
	Message string
	Index   int
}

// Error returns the error message
func (e *ParamError) Error() string {
	return e.Message
}

// NewParamError creates a parameter error for the token at index
func NewParamError(index int, format string, args ...interface{}) *ParamError {
	return &ParamError{
		Message: fmt.Sprintf(format, args...),
		Index:   index,
	}
}

// LedgerAPIError represents an error reported by the ledger service
type LedgerAPIError struct {
	Operation string
	Status    int
	Code      string
	Message   string
}

// Error returns the error message
func (e *LedgerAPIError) Error() string {
	return fmt.Sprintf("ledger API error during %s (status %d): [%s] %s", e.Operation, e.Status, e.Code, e.Message)
}

// StateError represents a violation of the user channel slot rules
type StateError struct {
	UserID    string
	ChannelID string
	Message   string
}

// Error returns the error message
func (e *StateError) Error() string {
	return fmt.Sprintf("state error for user %s in channel %s: %s", e.UserID, e.ChannelID, e.Message)
}

// FatalError represents a failure that must stop the bot
type FatalError struct {
	Reason string
}

// Error returns the error message
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s", e.Reason)
}

// Fatalf creates a fatal error
func Fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is or wraps a FatalError
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// ConfigError represents an error related to configuration
type ConfigError struct {
	Section string
	Message string
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Section, e.Message)
}
