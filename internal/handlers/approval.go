package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"chunkabank-bot/internal/chat"
	"chunkabank-bot/internal/constants"
	"chunkabank-bot/internal/helpers"
	"chunkabank-bot/internal/models"
)

// WithdrawalRequest is a confirmed withdraw request waiting for the counterparty
type WithdrawalRequest struct {
	Requester    models.UserInfo
	Counterparty models.UserInfo
	Amount       decimal.Decimal
	Description  string
}

// WithdrawalApproval asks the counterparty to approve a withdrawal
type WithdrawalApproval struct {
	deps *Dependencies
	dialog
	request   WithdrawalRequest
	channelID string
	timeout   time.Duration
}

// NewWithdrawalApproval creates the counterparty side of a withdraw request
func NewWithdrawalApproval(deps *Dependencies, request WithdrawalRequest) *WithdrawalApproval {
	return &WithdrawalApproval{
		deps:    deps,
		request: request,
		// the first wait is longer since the counterparty may not notice the request
		timeout: deps.Timeout * constants.ApprovalInitialTimeoutFactor,
	}
}

// TargetUserID returns the counterparty
func (a *WithdrawalApproval) TargetUserID() string {
	return a.request.Counterparty.UserID
}

// InitiateInteraction presents the request to the counterparty
func (a *WithdrawalApproval) InitiateInteraction(ctx context.Context, channelID string) (bool, error) {
	a.channelID = channelID
	a.status = StatusPendingConfirmation
	a.touch(a.deps.Now())

	text := fmt.Sprintf("The user %s is asking you to withdraw %s from your account with the following description:\n%s\n%s",
		a.request.Requester.PrintableName(), a.request.Amount, a.request.Description, helpers.ConfirmPrompt)
	if err := a.reply(ctx, text); err != nil {
		// the requester waits for an answer; report the undelivered request
		a.status = StatusCompleted
		if notifyErr := a.notifyRequester(ctx, fmt.Sprintf("Your withdraw request of %s could not be delivered to %s",
			a.request.Amount, a.request.Counterparty.PrintableName())); notifyErr != nil {
			a.deps.Logger.Errorf("Failed to report undelivered withdraw request: %v", notifyErr)
		}
		return true, err
	}
	return false, nil
}

// HandleMessage approves on yes/y and rejects on any other reply
func (a *WithdrawalApproval) HandleMessage(ctx context.Context, msg chat.Message) (bool, error) {
	a.touch(a.deps.Now())
	a.timeout = a.deps.Timeout

	if a.completed() {
		return true, fmt.Errorf("withdrawal approval received a message after completion")
	}
	a.status = StatusCompleted

	if helpers.ParseConfirmation(msg.Content) != helpers.ConfirmationYes {
		a.deps.Logger.Infof("User %s rejected a withdrawal of %s requested by %s",
			a.request.Counterparty.UserID, a.request.Amount, a.request.Requester.UserID)
		if err := a.notifyRequester(ctx, fmt.Sprintf("The user %s has rejected your withdraw request of %s",
			a.request.Counterparty.PrintableName(), a.request.Amount)); err != nil {
			return true, err
		}
		return true, a.reply(ctx, "Request cancelled")
	}

	err := a.deps.Ledger.Transfer(ctx, a.request.Counterparty.UserID, a.request.Requester.UserID,
		a.request.Amount, a.request.Description)
	if err != nil {
		failure, err := ledgerFailure("withdraw money", err)
		if err != nil {
			return true, err
		}
		if err := a.notifyRequester(ctx, fmt.Sprintf("The user %s has approved your withdraw request of %s, but the transfer failed:\n%s",
			a.request.Counterparty.PrintableName(), a.request.Amount, failure)); err != nil {
			return true, err
		}
		return true, a.reply(ctx, failure)
	}

	a.deps.Logger.Infof("User %s approved a withdrawal of %s requested by %s",
		a.request.Counterparty.UserID, a.request.Amount, a.request.Requester.UserID)
	if err := a.notifyRequester(ctx, fmt.Sprintf("The user %s has approved your withdraw request of %s",
		a.request.Counterparty.PrintableName(), a.request.Amount)); err != nil {
		return true, err
	}
	return true, a.reply(ctx, "Money withdrawn successfully")
}

// CheckExpired cancels the request when the counterparty does not answer in time
func (a *WithdrawalApproval) CheckExpired(ctx context.Context, now time.Time) (bool, error) {
	if !a.expired(now, a.timeout) {
		return false, nil
	}

	a.status = StatusCompleted
	if err := a.notifyRequester(ctx, fmt.Sprintf("Your withdraw request of %s from %s has expired",
		a.request.Amount, a.request.Counterparty.PrintableName())); err != nil {
		return true, err
	}
	return true, a.reply(ctx, helpers.ExpiredMessage)
}

func (a *WithdrawalApproval) reply(ctx context.Context, text string) error {
	return sendText(ctx, a.deps.Sender, a.deps.MessageLimit, a.channelID, text)
}

func (a *WithdrawalApproval) notifyRequester(ctx context.Context, text string) error {
	notification := NewNotification(a.deps, a.request.Requester.UserID, text)
	if err := a.deps.Queue.QueueInteraction(ctx, a.request.Requester.UserID, notification); err != nil {
		return fmt.Errorf("failed to notify requester %s: %w", a.request.Requester.UserID, err)
	}
	return nil
}
