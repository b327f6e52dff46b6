package alphavantage

import (
    "context"
    "fmt"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "holdingsync/internal/httpx"
    "holdingsync/internal/provider"
    "holdingsync/internal/provider/ratelimit"
)

// Config controls the Alpha Vantage provider behavior.
type Config struct {
    Name    string
    BaseURL string
    APIKey  string
    // RequestsPerMinute is the free-tier quota (5/minute).
    RequestsPerMinute int
}

// Provider fetches GLOBAL_QUOTE responses from Alpha Vantage, one request
// per symbol. The free tier allows five calls a minute, so the provider
// blocks out the rest of the window when the quota is spent. This is the
// last resort in the waterfall; by the time it runs the cheap providers
// have already claimed most symbols.
type Provider struct {
    cfg       Config
    client    *httpx.Client
    converter provider.Converter
    window    *ratelimit.Window
    log       zerolog.Logger
}

func New(cfg Config, hc *httpx.Client, conv provider.Converter, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "AlphaVantage" }
    if cfg.BaseURL == "" { cfg.BaseURL = "https://www.alphavantage.co/query" }
    if cfg.RequestsPerMinute <= 0 { cfg.RequestsPerMinute = 5 }
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

type globalQuote struct {
    Quote struct {
        Symbol string `json:"01. symbol"`
        Price  string `json:"05. price"`
    } `json:"Global Quote"`
    Note string `json:"Note"`
}

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    cur := strings.ToUpper(currency)
    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(symbols))
    var lastErr error
    for _, sym := range symbols {
        if err := p.window.Wait(ctx); err != nil { return out, err }
        p.window.Record()

        var body globalQuote
        q := url.Values{
            "function": {"GLOBAL_QUOTE"},
            "symbol":   {sym},
            "apikey":   {p.cfg.APIKey},
        }
        err := p.client.GetJSON(ctx, fmt.Sprintf("%s?%s", p.cfg.BaseURL, q.Encode()), &body)
        if err != nil {
            if ctx.Err() != nil { return out, ctx.Err() }
            p.log.Warn().Err(err).Str("symbol", sym).Msg("quote failed, continuing")
            lastErr = err
            continue
        }
        if body.Note != "" {
            // throttle note instead of data; count it as a failed call
            p.log.Warn().Str("symbol", sym).Str("note", body.Note).Msg("upstream throttled")
            lastErr = fmt.Errorf("throttled: %s", body.Note)
            continue
        }
        price, err := strconv.ParseFloat(strings.TrimSpace(body.Quote.Price), 64)
        if err != nil || price <= 0 { continue }

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
