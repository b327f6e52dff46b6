package finnhub

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

// Config controls the Finnhub provider behavior.
type Config struct {
    Name    string
    BaseURL string
    APIKey  string
    // RequestsPerMinute is the quota of the free tier (60/minute).
    RequestsPerMinute int
}

// Provider fetches quotes from the Finnhub quote endpoint, one request per
// symbol. Finnhub only understands bare tickers, so punctuated symbols are
// silently excluded from the request. The quota is enforced with a fixed
// one-minute window; when it is spent the provider waits out the remainder
// of the window instead of failing.
type Provider struct {
    cfg       Config
    client    *httpx.Client
    converter provider.Converter
    window    *ratelimit.Window
    log       zerolog.Logger
}

func New(cfg Config, hc *httpx.Client, conv provider.Converter, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "Finnhub" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://finnhub.io/api/v1" }
    if cfg.RequestsPerMinute <= 0 { cfg.RequestsPerMinute = 60 }
    return &Provider{
        cfg:       cfg,
        client:    hc,
        converter: conv,
        window:    ratelimit.NewWindow(cfg.RequestsPerMinute, time.Minute),
        log:       log.With().Str("provider", cfg.Name).Logger(),
    }
}

func (p *Provider) Name() string { return p.cfg.Name }

// Available requires an API key.
func (p *Provider) Available() bool { return p.cfg.APIKey != "" }

type quoteBody struct {
    Current float64 `json:"c"`
}

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    tickers := make([]string, 0, len(symbols))
    for _, s := range symbols {
        if provider.IsPlainTicker(s) { tickers = append(tickers, s) }
    }
    if len(tickers) == 0 { return nil, nil }

    cur := strings.ToUpper(currency)
    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(tickers))
    var lastErr error
    for _, sym := range tickers {
        if err := p.window.Wait(ctx); err != nil { return out, err }
        p.window.Record()

        var body quoteBody
        q := url.Values{"symbol": {strings.ToUpper(sym)}, "token": {p.cfg.APIKey}}
        err := p.client.GetJSON(ctx, fmt.Sprintf("%s/quote?%s", p.cfg.BaseURL, q.Encode()), &body)
        if err != nil {
            if ctx.Err() != nil { return out, ctx.Err() }
            p.log.Warn().Err(err).Str("symbol", sym).Msg("quote failed, continuing")
            lastErr = err
            continue
        }
        // unknown symbols come back as c=0, which is "not found" not an error
        if body.Current <= 0 { continue }

        price := body.Current
        if cur != "USD" && p.converter != nil {
            price = p.converter.Convert(ctx, price, "USD", cur)
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
