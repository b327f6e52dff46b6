package ledger

import (
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=ledger_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the budgeting tool's REST API (YNAB-compatible).
// Amounts cross this boundary as integer milliunits (×1000); conversion
// from decimal balances happens here and nowhere else. Unlike the price
// providers, ledger calls fail hard: a swallowed balance-write error would
// silently desync the budget.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// token is the personal access token sent as a Bearer credential.
	token string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// ClientOption is a configuration option for the ledger client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new ledger API client.
func NewClient(token string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

const defaultBaseURL = "https://api.ynab.com/v1"

const milliunitsPerUnit = 1000

// ToMilliunits converts a decimal currency amount to the API's integer
// milliunit representation, rounding half away from zero.
func ToMilliunits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(milliunitsPerUnit)).Round(0).IntPart()
}

// FromMilliunits converts an integer milliunit amount back to a decimal.
func FromMilliunits(n int64) decimal.Decimal {
	return decimal.New(n, -3)
}
