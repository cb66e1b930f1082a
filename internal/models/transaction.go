package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a ledger transaction of a user
type Transaction struct {
	ID          string
	Amount      decimal.Decimal
	Timestamp   time.Time
	Description string
}

// TransactionQuery filters a transaction history request
type TransactionQuery struct {
	From  *time.Time
	To    *time.Time
	LastN int
}

// Bookmark is the last ledger poll of a user
type Bookmark struct {
	LastPoll       time.Time `json:"last_poll"`
	TransactionIDs []string  `json:"transaction_ids"`
}

// Contains checks whether the transaction was reported by the bookmarked poll
func (b Bookmark) Contains(transactionID string) bool {
	for _, id := range b.TransactionIDs {
		if id == transactionID {
			return true
		}
	}
	return false
}
