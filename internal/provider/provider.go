package provider

import (
    "context"
    "strings"
    "time"
)

// Quote is the normalized shape returned by all providers.
// A zero or negative price is never emitted; providers treat those as "not found".
type Quote struct {
    Symbol     string    `json:"symbol"`
    Price      float64   `json:"price"`
    Currency   string    `json:"currency"`
    Source     string    `json:"source"`
    ReceivedAt time.Time `json:"received_at"`
}

// Provider is the capability every price source implements.
// Available must be a pure check of configuration (no I/O); unavailable
// providers are excluded when the resolver is built, not per call.
// Fetch may return fewer quotes than requested (partial match is normal,
// not an error) and must never return a quote for a symbol it was not
// asked about.
type Provider interface {
    Name() string
    Available() bool
    Fetch(ctx context.Context, symbols []string, currency string) ([]Quote, error)
}

// Converter converts an amount between two currencies. Implementations
// never fail; they return the original amount when a rate cannot be
// resolved. Providers whose upstream prices in a native currency use this
// to substitute the target-currency value.
type Converter interface {
    Convert(ctx context.Context, amount float64, from, to string) float64
}

// IsPlainTicker reports whether s is a bare alphanumeric ticker.
// Providers that only understand simple tickers use this to drop
// exchange-suffixed symbols (e.g. "NQSE.DE") and ISINs from their requests.
func IsPlainTicker(s string) bool {
    if s == "" { return false }
    for _, r := range s {
        switch {
        case r >= 'a' && r <= 'z':
        case r >= 'A' && r <= 'Z':
        case r >= '0' && r <= '9':
        default:
            return false
        }
    }
    return true
}

// IsISIN reports whether s looks like an ISIN: two letters, nine
// alphanumerics, one check digit. No checksum validation; upstreams reject
// unknown ISINs themselves.
func IsISIN(s string) bool {
    s = strings.ToUpper(s)
    if len(s) != 12 { return false }
    for i, r := range s {
        switch {
        case i < 2:
            if r < 'A' || r > 'Z' { return false }
        case i == 11:
            if r < '0' || r > '9' { return false }
        default:
            if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') { return false }
        }
    }
    return true
}

// FoldSymbol is the canonical case-insensitive form used when matching
// symbols across providers.
func FoldSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
