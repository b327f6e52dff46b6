package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Account is one budget account as the API reports it.
type Account struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Balance      int64  `json:"balance"` // milliunits
	CurrencyCode string `json:"currency_code"`
	Closed       bool   `json:"closed"`
}

// BalanceAmount is the account balance as a decimal currency amount.
func (a Account) BalanceAmount() decimal.Decimal {
	return FromMilliunits(a.Balance)
}

// Transaction is an adjustment appended to an account. Transactions are
// write-only: the API appends them, nothing here ever mutates one.
type Transaction struct {
	AccountID string
	Amount    int64 // milliunits, signed
	Memo      string
	Date      time.Time
	PayeeName string
}

type accountsResponse struct {
	Data struct {
		Accounts []Account `json:"accounts"`
	} `json:"data"`
}

// ListAccounts returns the open accounts of a budget.
func (c *Client) ListAccounts(ctx context.Context, budgetID string) ([]Account, error) {
	url := fmt.Sprintf("%s/budgets/%s/accounts", c.baseURL, budgetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.prepare(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var body accountsResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding accounts response: %w", err)
	}

	accounts := make([]Account, 0, len(body.Data.Accounts))
	for _, a := range body.Data.Accounts {
		if a.Closed {
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

type createTransactionRequest struct {
	Transaction struct {
		AccountID string `json:"account_id"`
		Amount    int64  `json:"amount"`
		Date      string `json:"date"`
		Memo      string `json:"memo,omitempty"`
		PayeeName string `json:"payee_name,omitempty"`
		Cleared   string `json:"cleared"`
	} `json:"transaction"`
}

// CreateTransaction appends an adjustment transaction to an account.
func (c *Client) CreateTransaction(ctx context.Context, budgetID string, tx Transaction) error {
	var payload createTransactionRequest
	payload.Transaction.AccountID = tx.AccountID
	payload.Transaction.Amount = tx.Amount
	payload.Transaction.Date = tx.Date.Format("2006-01-02")
	payload.Transaction.Memo = tx.Memo
	payload.Transaction.PayeeName = tx.PayeeName
	payload.Transaction.Cleared = "cleared"

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}

	url := fmt.Sprintf("%s/budgets/%s/transactions", c.baseURL, budgetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.prepare(req)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return err
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

func (c *Client) prepare(req *http.Request) {
	for key, values := range c.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if len(c.query) > 0 {
		q := req.URL.Query()
		for key, values := range c.query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

func checkStatus(res *http.Response) error {
	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return nil
	case res.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized")
	case res.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		return fmt.Errorf("unexpected status code %d: %s", res.StatusCode, string(b))
	}
}
