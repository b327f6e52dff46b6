package tradegate

import (
    "context"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "holdingsync/internal/httpx"
    "holdingsync/internal/provider"
    "holdingsync/internal/provider/ratelimit"
)

// Config controls the Tradegate provider behavior.
type Config struct {
    Name string
    URL  string // order book page, ISIN appended as query param
    // PageIntervalMs is the minimum pause between page fetches.
    PageIntervalMs int
}

// Provider scrapes last-trade prices from Tradegate order book pages.
// Only ISIN-shaped symbols are requested; everything else is left for
// other providers. Pages quote in EUR, so prices are converted when the
// target currency differs. A failed page fetch for one ISIN never aborts
// the rest of the batch.
type Provider struct {
    cfg       Config
    client    *httpx.Client
    converter provider.Converter
    gate      *ratelimit.MinInterval
    log       zerolog.Logger
}

func New(cfg Config, hc *httpx.Client, conv provider.Converter, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "Tradegate" }
    if cfg.URL == "" { cfg.URL = "https://www.tradegate.de/orderbuch.php" }
    if cfg.PageIntervalMs <= 0 { cfg.PageIntervalMs = 500 }
    return &Provider{
        cfg:       cfg,
        client:    hc,
        converter: conv,
        gate:      &ratelimit.MinInterval{Interval: time.Duration(cfg.PageIntervalMs) * time.Millisecond},
        log:       log.With().Str("provider", cfg.Name).Logger(),
    }
}

func (p *Provider) Name() string { return p.cfg.Name }

// Available is always true: the pages are public.
func (p *Provider) Available() bool { return true }

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    isins := make([]string, 0, len(symbols))
    for _, s := range symbols {
        if provider.IsISIN(s) { isins = append(isins, s) }
    }
    if len(isins) == 0 { return nil, nil }

    cur := strings.ToUpper(currency)
    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(isins))
    var lastErr error
    for _, isin := range isins {
        if err := p.gate.Wait(ctx); err != nil { return out, err }
        price, err := p.fetchPage(ctx, isin)
        if err != nil {
            p.log.Warn().Err(err).Str("isin", isin).Msg("page fetch failed, continuing")
            lastErr = err
            continue
        }
        if price <= 0 { continue }
        if cur != "EUR" && p.converter != nil {
            price = p.converter.Convert(ctx, price, "EUR", cur)
        }
        out = append(out, provider.Quote{
            Symbol:     isin,
            Price:      price,
            Currency:   cur,
            Source:     p.cfg.Name,
            ReceivedAt: now,
        })
    }
    if len(out) == 0 && lastErr != nil { return nil, lastErr }
    return out, nil
}

func (p *Provider) fetchPage(ctx context.Context, isin string) (float64, error) {
    url := fmt.Sprintf("%s?isin=%s", p.cfg.URL, isin)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
    if err != nil { return 0, err }
    resp, err := p.client.Do(ctx, req)
    if err != nil { return 0, err }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return 0, fmt.Errorf("GET %s -> %d", url, resp.StatusCode)
    }
    body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
    if err != nil { return 0, err }
    price, ok := ParsePrice(body)
    if !ok { return 0, fmt.Errorf("no last price on page for %s", isin) }
    return price, nil
}
