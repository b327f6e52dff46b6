package cryptocompare

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "holdingsync/internal/httpx"
    "holdingsync/internal/provider"
)

// Config controls the CryptoCompare provider behavior.
type Config struct {
    Name   string
    URL    string
    APIKey string // optional; the public endpoint works without one
}

// Provider fetches crypto prices from the CryptoCompare pricemulti
// endpoint. One request covers the whole batch, and prices come back
// directly in the requested currency, so no conversion is needed.
type Provider struct {
    cfg    Config
    client *httpx.Client
    log    zerolog.Logger
}

func New(cfg Config, hc *httpx.Client, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "CryptoCompare" }
    if cfg.URL == "" { cfg.URL = "https://min-api.cryptocompare.com/data/pricemulti" }
    return &Provider{cfg: cfg, client: hc, log: log.With().Str("provider", cfg.Name).Logger()}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Available is always true: the public endpoint needs no credential.
func (p *Provider) Available() bool { return true }

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    // only bare tickers; ISINs and exchange-suffixed symbols are not crypto
    tickers := make([]string, 0, len(symbols))
    for _, s := range symbols {
        if provider.IsPlainTicker(s) { tickers = append(tickers, s) }
    }
    if len(tickers) == 0 { return nil, nil }

    cur := strings.ToUpper(currency)
    u, err := url.Parse(p.cfg.URL)
    if err != nil { return nil, err }
    q := u.Query()
    q.Set("fsyms", strings.ToUpper(strings.Join(tickers, ",")))
    q.Set("tsyms", cur)
    u.RawQuery = q.Encode()

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
    if err != nil { return nil, err }
    if p.cfg.APIKey != "" { req.Header.Set("Authorization", "Apikey "+p.cfg.APIKey) }
    req.Header.Set("Accept", "application/json")

    resp, err := p.client.Do(ctx, req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return nil, fmt.Errorf("GET %s -> %d", u.String(), resp.StatusCode)
    }

    // pricemulti answers {"BTC":{"USD":45000}, ...} on success and
    // {"Response":"Error","Message":...} on failure, on the same path.
    var raw map[string]json.RawMessage
    if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
        return nil, fmt.Errorf("decode: %w", err)
    }
    if msg, ok := raw["Response"]; ok {
        var status string
        _ = json.Unmarshal(msg, &status)
        if strings.EqualFold(status, "Error") {
            var detail string
            _ = json.Unmarshal(raw["Message"], &detail)
            return nil, fmt.Errorf("provider error: %s", detail)
        }
    }

    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(tickers))
    for _, sym := range tickers {
        rm, ok := raw[strings.ToUpper(sym)]
        if !ok { continue }
        var rates map[string]float64
        if err := json.Unmarshal(rm, &rates); err != nil {
            p.log.Debug().Str("symbol", sym).Err(err).Msg("skipping malformed entry")
            continue
        }
        price, ok := rates[cur]
        if !ok || price <= 0 { continue }
        out = append(out, provider.Quote{
            Symbol:     sym,
            Price:      price,
            Currency:   cur,
            Source:     p.cfg.Name,
            ReceivedAt: now,
        })
    }
    return out, nil
}
