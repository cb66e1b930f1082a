package models

import (
	"fmt"
	"strings"
)

// UserInfo represents a chat group member known to the directory
type UserInfo struct {
	UserID          string
	Name            string
	Nickname        string
	DisplayName     string
	DirectChannelID string
}

// PrintableName returns the display name followed by the account name
func (u UserInfo) PrintableName() string {
	if u.DisplayName == "" || u.DisplayName == u.Name {
		return u.Name
	}
	return fmt.Sprintf("%s (%s)", u.DisplayName, u.Name)
}

// ShortName returns the name used inside generated descriptions
func (u UserInfo) ShortName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// MatchesPrefix checks whether any of the user's names starts with the query
func (u UserInfo) MatchesPrefix(query string) bool {
	query = strings.ToLower(query)
	for _, name := range u.names() {
		if name != "" && strings.HasPrefix(strings.ToLower(name), query) {
			return true
		}
	}
	return false
}

// MatchesExactly checks whether any of the user's names equals the query
func (u UserInfo) MatchesExactly(query string) bool {
	for _, name := range u.names() {
		if name != "" && strings.EqualFold(name, query) {
			return true
		}
	}
	return false
}

func (u UserInfo) names() []string {
	return []string{u.Name, u.Nickname, u.DisplayName}
}

// UserMapping maps a chat user to a ledger account
type UserMapping struct {
	ChatUserID   string
	LedgerUserID string
	IsAdmin      bool
}

// HasLedgerAccount checks if the user is provisioned on the ledger
func (m UserMapping) HasLedgerAccount() bool {
	return m.LedgerUserID != ""
}
