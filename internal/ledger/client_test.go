package ledger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	ledger "holdingsync/internal/ledger"
)

func jsonBody(t *testing.T, v any) io.ReadCloser {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return io.NopCloser(buffer)
}

func TestListAccounts(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.True(t, strings.HasSuffix(req.URL.Path, "/budgets/budget-1/accounts"), "path: %s", req.URL.Path)
			require.Equal(t, "Bearer token-1", req.Header.Get("Authorization"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body: jsonBody(t, map[string]any{
					"data": map[string]any{
						"accounts": []map[string]any{
							{"id": "acc-1", "name": "Depot", "balance": 1000000, "currency_code": "USD"},
							{"id": "acc-2", "name": "Old", "balance": 5000, "currency_code": "USD", "closed": true},
						},
					},
				}),
			}, nil
		}).
		Times(1)

	client, err := ledger.NewClient("token-1", ledger.WithHTTPClient(httpClient))
	require.NoError(t, err)

	accounts, err := client.ListAccounts(context.Background(), "budget-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1, "closed accounts are filtered")
	require.Equal(t, "acc-1", accounts[0].ID)
	require.True(t, accounts[0].BalanceAmount().Equal(decimal.RequireFromString("1000")))
}

func TestListAccounts_ErrorPropagates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("down")),
		}, nil).
		Times(1)

	client, err := ledger.NewClient("token-1", ledger.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.ListAccounts(context.Background(), "budget-1")
	require.Error(t, err, "ledger failures must not be swallowed")
}

func TestCreateTransaction_Payload(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.True(t, strings.HasSuffix(req.URL.Path, "/budgets/budget-1/transactions"))

			var payload struct {
				Transaction struct {
					AccountID string `json:"account_id"`
					Amount    int64  `json:"amount"`
					Date      string `json:"date"`
					Memo      string `json:"memo"`
					Cleared   string `json:"cleared"`
				} `json:"transaction"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&payload))
			require.Equal(t, "acc-1", payload.Transaction.AccountID)
			require.EqualValues(t, 2000000, payload.Transaction.Amount)
			require.Equal(t, "2025-06-01", payload.Transaction.Date)
			require.Contains(t, payload.Transaction.Memo, "AAPL")
			require.Equal(t, "cleared", payload.Transaction.Cleared)

			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(strings.NewReader(`{"data":{}}`)),
			}, nil
		}).
		Times(1)

	client, err := ledger.NewClient("token-1", ledger.WithHTTPClient(httpClient))
	require.NoError(t, err)

	err = client.CreateTransaction(context.Background(), "budget-1", ledger.Transaction{
		AccountID: "acc-1",
		Amount:    2000000,
		Memo:      "1000.00 -> 3000.00 USD (AAPL, MSFT)",
		Date:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestMilliunits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount string
		want   int64
	}{
		{"1000", 1000000},
		{"0.01", 10},
		{"-25.4015", -25402}, // rounds half away from zero
		{"0", 0},
	}
	for _, c := range cases {
		got := ledger.ToMilliunits(decimal.RequireFromString(c.amount))
		require.Equal(t, c.want, got, "amount %s", c.amount)
	}

	require.True(t, ledger.FromMilliunits(1500).Equal(decimal.RequireFromString("1.5")))
}
