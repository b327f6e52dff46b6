package fmp

import (
    "context"
    "fmt"
    "net/url"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "holdingsync/internal/httpx"
    "holdingsync/internal/provider"
    "holdingsync/internal/provider/ratelimit"
)

// Config controls the Financial Modeling Prep provider behavior.
type Config struct {
    Name    string
    BaseURL string
    APIKey  string
    // DailyLimit is the free-tier hard cap. Once spent, remaining symbols
    // are returned unresolved for the rest of the day instead of blocking.
    DailyLimit int
}

// Provider resolves symbols through Financial Modeling Prep. For each
// symbol it walks a fallback chain, stopping at the first step that yields
// a positive price:
//
//  1. quote-short for plain equities
//  2. quote for funds, ETFs and indices that the short endpoint misses
//  3. search-ticker, then quote on the best hit, for alternate listings
//
// Search hits without an exchange are treated as delisted and skipped even
// when a price value is present.
type Provider struct {
    cfg       Config
    client    *httpx.Client
    converter provider.Converter
    daily     *ratelimit.Window
    log       zerolog.Logger
}

func New(cfg Config, hc *httpx.Client, conv provider.Converter, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "FMP" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://financialmodelingprep.com/api/v3" }
    if cfg.DailyLimit <= 0 { cfg.DailyLimit = 250 }
    return &Provider{
        cfg:       cfg,
        client:    hc,
        converter: conv,
        daily:     ratelimit.NewWindow(cfg.DailyLimit, 24*time.Hour),
        log:       log.With().Str("provider", cfg.Name).Logger(),
    }
}

func (p *Provider) Name() string { return p.cfg.Name }

// Available requires an API key.
func (p *Provider) Available() bool { return p.cfg.APIKey != "" }

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    cur := strings.ToUpper(currency)
    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(symbols))
    var lastErr error
    for _, sym := range symbols {
        if p.daily.Exhausted() {
            // hard daily cap: hand back what we have, the rest stays unresolved
            p.log.Warn().Int("limit", p.cfg.DailyLimit).Msg("daily quota spent, truncating batch")
            break
        }
        price, native, err := p.resolveOne(ctx, sym)
        if err != nil {
            if ctx.Err() != nil { return out, ctx.Err() }
            p.log.Warn().Err(err).Str("symbol", sym).Msg("symbol lookup failed, continuing")
            lastErr = err
            continue
        }
        if price <= 0 { continue }
        if native != "" && native != cur && p.converter != nil {
            price = p.converter.Convert(ctx, price, native, cur)
        }
        out = append(out, provider.Quote{
            Symbol:     sym,
            Price:      price,
            Currency:   cur,
            Source:     p.cfg.Name,
            ReceivedAt: now,
        })
    }
    if len(out) == 0 && lastErr != nil { return nil, lastErr }
    return out, nil
}

// resolveOne walks the per-symbol fallback chain. It returns the first
// positive price with its native currency ("" means USD-quoted endpoints).
func (p *Provider) resolveOne(ctx context.Context, symbol string) (float64, string, error) {
    if price, err := p.quoteShort(ctx, symbol); err == nil && price > 0 {
        return price, "USD", nil
    } else if err != nil && ctx.Err() != nil {
        return 0, "", err
    }

    if price, err := p.quoteFull(ctx, symbol); err == nil && price > 0 {
        return price, "USD", nil
    } else if err != nil && ctx.Err() != nil {
        return 0, "", err
    }

    hit, err := p.search(ctx, symbol)
    if err != nil { return 0, "", err }
    if hit == nil { return 0, "", nil }
    price, err := p.quoteShort(ctx, hit.Symbol)
    if err != nil { return 0, "", err }
    return price, hit.Currency, nil
}

func (p *Provider) quoteShort(ctx context.Context, symbol string) (float64, error) {
    var body []struct {
        Symbol string  `json:"symbol"`
        Price  float64 `json:"price"`
    }
    if err := p.get(ctx, "/quote-short/"+url.PathEscape(symbol), nil, &body); err != nil {
        return 0, err
    }
    for _, e := range body {
        if strings.EqualFold(e.Symbol, symbol) && e.Price > 0 { return e.Price, nil }
    }
    return 0, nil
}

func (p *Provider) quoteFull(ctx context.Context, symbol string) (float64, error) {
    var body []struct {
        Symbol string  `json:"symbol"`
        Price  float64 `json:"price"`
    }
    if err := p.get(ctx, "/quote/"+url.PathEscape(symbol), nil, &body); err != nil {
        return 0, err
    }
    for _, e := range body {
        if strings.EqualFold(e.Symbol, symbol) && e.Price > 0 { return e.Price, nil }
    }
    return 0, nil
}

type searchHit struct {
    Symbol            string `json:"symbol"`
    Name              string `json:"name"`
    Currency          string `json:"currency"`
    StockExchange     string `json:"stockExchange"`
    ExchangeShortName string `json:"exchangeShortName"`
}

func (p *Provider) search(ctx context.Context, query string) (*searchHit, error) {
    var body []searchHit
    q := url.Values{"query": {query}, "limit": {"5"}}
    if err := p.get(ctx, "/search-ticker", q, &body); err != nil { return nil, err }
    for i := range body {
        // no exchange means the listing is gone; skip it even with a hit
        if body[i].ExchangeShortName == "" { continue }
        return &body[i], nil
    }
    return nil, nil
}

func (p *Provider) get(ctx context.Context, path string, q url.Values, out any) error {
    if q == nil { q = url.Values{} }
    q.Set("apikey", p.cfg.APIKey)
    p.daily.Record()
    return p.client.GetJSON(ctx, fmt.Sprintf("%s%s?%s", p.cfg.BaseURL, path, q.Encode()), out)
}
