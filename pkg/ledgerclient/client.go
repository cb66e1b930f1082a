package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"chunkabank-bot/internal/constants"
	apperrors "chunkabank-bot/internal/errors"
	"chunkabank-bot/internal/models"
)

// Client represents a ledger REST API client
type Client struct {
	httpClient *resty.Client
	baseURL    string
	logger     *logrus.Logger
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type transferRequest struct {
	To          string      `json:"to"`
	Value       json.Number `json:"value"`
	Description string      `json:"description"`
}

type errorResponse struct {
	ErrorCode json.RawMessage `json:"error_code"`
	ErrorMsg  string          `json:"error_msg"`
	Error     string          `json:"error"`
}

type transactionResponse struct {
	UserID      string          `json:"userid"`
	ID          flexibleID      `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
}

// flexibleID accepts both string and numeric transaction ids
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// NewClient creates a new ledger API client
func NewClient(baseURL string, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(constants.DefaultTimeout * time.Second).
		SetRetryCount(constants.DefaultRetryCount).
		SetRetryWaitTime(constants.DefaultRetryWaitTime * time.Second).
		SetRetryMaxWaitTime(constants.DefaultRetryMaxWaitTime * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// transfers are not idempotent
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) userURL(ledgerUserID string, action string) string {
	return fmt.Sprintf("%s/user/%s/%s", c.baseURL, url.PathEscape(ledgerUserID), action)
}

// GetBalance gets the balance of a ledger account
func (c *Client) GetBalance(ctx context.Context, ledgerUserID string) (decimal.Decimal, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(c.userURL(ledgerUserID, "balance"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return decimal.Zero, fmt.Errorf("ledger user %s: %w", ledgerUserID, apperrors.ErrNoLedgerUser)
	default:
		return decimal.Zero, c.apiError("get balance", resp)
	}

	var balance balanceResponse
	if err := json.Unmarshal(resp.Body(), &balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance response: %w", err)
	}

	return balance.Balance, nil
}

// Transfer moves money between two ledger accounts
func (c *Client) Transfer(ctx context.Context, fromLedgerUserID, toLedgerUserID string, amount decimal.Decimal, description string) error {
	c.logger.Infof("Transferring %s from %s to %s", amount, fromLedgerUserID, toLedgerUserID)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(transferRequest{
			To:          toLedgerUserID,
			Value:       json.Number(amount.String()),
			Description: description,
		}).
		Post(c.userURL(fromLedgerUserID, "transfer"))
	if err != nil {
		return fmt.Errorf("transfer request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("ledger user %s: %w", fromLedgerUserID, apperrors.ErrNoLedgerUser)
	default:
		return c.apiError("transfer", resp)
	}
}

// GetTransactions gets the transaction history of a ledger account
func (c *Client) GetTransactions(ctx context.Context, ledgerUserID string, query models.TransactionQuery) ([]models.Transaction, error) {
	params := map[string]string{}
	if query.From != nil {
		params["from_time"] = query.From.UTC().Format(time.RFC3339)
	}
	if query.To != nil {
		params["to_time"] = query.To.UTC().Format(time.RFC3339)
	}
	if query.LastN > 0 {
		params["last_n"] = strconv.Itoa(query.LastN)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.userURL(ledgerUserID, "transactions"))
	if err != nil {
		return nil, fmt.Errorf("get transactions request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("ledger user %s: %w", ledgerUserID, apperrors.ErrNoLedgerUser)
	default:
		return nil, c.apiError("get transactions", resp)
	}

	var items []transactionResponse
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("failed to parse transactions response: %w", err)
	}

	transactions := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		transactions = append(transactions, models.Transaction{
			ID:          string(item.ID),
			Amount:      item.Amount,
			Timestamp:   item.Timestamp,
			Description: item.Description,
		})
	}

	return transactions, nil
}

// apiError converts an error response into a LedgerAPIError
func (c *Client) apiError(operation string, resp *resty.Response) error {
	c.logger.Errorf("Ledger %s failed - Status: %d, Response: %s", operation, resp.StatusCode(), string(resp.Body()))

	apiErr := &apperrors.LedgerAPIError{
		Operation: operation,
		Status:    resp.StatusCode(),
		Code:      strconv.Itoa(resp.StatusCode()),
		Message:   http.StatusText(resp.StatusCode()),
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return apiErr
	}

	if code := errorCode(body.ErrorCode); code != "" {
		apiErr.Code = code
	}
	switch {
	case body.ErrorMsg != "":
		apiErr.Message = body.ErrorMsg
	case body.Error != "":
		apiErr.Message = body.Error
	}

	return apiErr
}

func errorCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
