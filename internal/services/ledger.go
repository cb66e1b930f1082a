package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/models"
)

// LedgerClient is the ledger REST contract keyed by ledger account ids
type LedgerClient interface {
	GetBalance(ctx context.Context, ledgerUserID string) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromLedgerUserID, toLedgerUserID string, amount decimal.Decimal, description string) error
	GetTransactions(ctx context.Context, ledgerUserID string, query models.TransactionQuery) ([]models.Transaction, error)
}

// AccountMapper maps chat users to ledger accounts
type AccountMapper interface {
	LedgerUserID(chatUserID string) (string, bool)
}

// LedgerService exposes the ledger to chat users
type LedgerService struct {
	client LedgerClient
	mapper AccountMapper
	logger *logrus.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(client LedgerClient, mapper AccountMapper, logger *logrus.Logger) *LedgerService {
	return &LedgerService{
		client: client,
		mapper: mapper,
		logger: logger,
	}
}

func (s *LedgerService) resolve(userID string) (string, error) {
	ledgerUserID, ok := s.mapper.LedgerUserID(userID)
	if !ok {
		return "", fmt.Errorf("chat user %s: %w", userID, apperrors.ErrNoLedgerUser)
	}
	return ledgerUserID, nil
}

// Balance returns the balance of a chat user
func (s *LedgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	ledgerUserID, err := s.resolve(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.client.GetBalance(ctx, ledgerUserID)
}

// Transfer moves money between two chat users
func (s *LedgerService) Transfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal, description string) error {
	from, err := s.resolve(fromUserID)
	if err != nil {
		return err
	}
	to, err := s.resolve(toUserID)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"from":   fromUserID,
		"to":     toUserID,
		"amount": amount.String(),
	}).Info("Requesting ledger transfer")

	return s.client.Transfer(ctx, from, to, amount, description)
}

// Transactions returns the transaction history of a chat user
func (s *LedgerService) Transactions(ctx context.Context, userID string, query models.TransactionQuery) ([]models.Transaction, error) {
	ledgerUserID, err := s.resolve(userID)
	if err != nil {
		return nil, err
	}
	return s.client.GetTransactions(ctx, ledgerUserID, query)
}
