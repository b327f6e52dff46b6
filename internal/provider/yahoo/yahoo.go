package yahoo

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/http/cookiejar"
    "net/url"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
    "golang.org/x/net/publicsuffix"

    "holdingsync/internal/provider"
)

// Config controls the Yahoo Finance provider behavior.
type Config struct {
    Name     string
    QuoteURL string
    CrumbURL string
    InitURL  string
}

// Provider fetches batch quotes from the Yahoo Finance v7 quote API.
// Yahoo requires a cookie session plus a "crumb" token; both are fetched
// lazily on first use and kept for the process lifetime. Quotes come back
// in each listing's native currency and are converted to the target
// currency when they differ.
type Provider struct {
    cfg       Config
    client    *http.Client
    converter provider.Converter
    log       zerolog.Logger

    mu    sync.Mutex
    crumb string
}

func New(cfg Config, timeout time.Duration, conv provider.Converter, log zerolog.Logger) *Provider {
    if cfg.Name == "" { cfg.Name = "Yahoo" }
    if cfg.QuoteURL == "" { cfg.QuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote" }
    if cfg.CrumbURL == "" { cfg.CrumbURL = "https://query1.finance.yahoo.com/v1/test/getcrumb" }
    if cfg.InitURL == "" { cfg.InitURL = "https://finance.yahoo.com/quote/AAPL" }
    jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
    return &Provider{
        cfg:       cfg,
        client:    &http.Client{Jar: jar, Timeout: timeout},
        converter: conv,
        log:       log.With().Str("provider", cfg.Name).Logger(),
    }
}

func (p *Provider) Name() string { return p.cfg.Name }

// Available is always true: Yahoo needs no API key, only a session that is
// established on first fetch.
func (p *Provider) Available() bool { return true }

type quoteResponse struct {
    QuoteResponse struct {
        Result []struct {
            Symbol             string  `json:"symbol"`
            RegularMarketPrice float64 `json:"regularMarketPrice"`
            Currency           string  `json:"currency"`
        } `json:"result"`
        Error any `json:"error"`
    } `json:"quoteResponse"`
}

func (p *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    if len(symbols) == 0 { return nil, nil }

    crumb, err := p.ensureSession(ctx)
    if err != nil { return nil, fmt.Errorf("yahoo session: %w", err) }

    u, err := url.Parse(p.cfg.QuoteURL)
    if err != nil { return nil, err }
    q := u.Query()
    q.Set("symbols", strings.Join(symbols, ","))
    q.Set("crumb", crumb)
    u.RawQuery = q.Encode()

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
    if err != nil { return nil, err }
    req.Header.Set("User-Agent", browserUserAgent)
    req.Header.Set("Accept", "application/json")

    resp, err := p.client.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
        // session went stale; drop the crumb so the next run re-initializes
        p.mu.Lock()
        p.crumb = ""
        p.mu.Unlock()
        return nil, fmt.Errorf("GET %s -> %d (session expired)", p.cfg.QuoteURL, resp.StatusCode)
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return nil, fmt.Errorf("GET %s -> %d", p.cfg.QuoteURL, resp.StatusCode)
    }

    var body quoteResponse
    if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
        return nil, fmt.Errorf("decode: %w", err)
    }

    cur := strings.ToUpper(currency)
    now := time.Now().UTC()
    out := make([]provider.Quote, 0, len(body.QuoteResponse.Result))
    for _, r := range body.QuoteResponse.Result {
        if r.RegularMarketPrice <= 0 { continue }
        price := r.RegularMarketPrice
        native := strings.ToUpper(r.Currency)
        quoteCur := cur
        if native != "" && native != cur && p.converter != nil {
            price = p.converter.Convert(ctx, price, native, cur)
        } else if native != "" && native != cur {
            quoteCur = native
        }
        out = append(out, provider.Quote{
            Symbol:     r.Symbol,
            Price:      price,
            Currency:   quoteCur,
            Source:     p.cfg.Name,
            ReceivedAt: now,
        })
    }
    return out, nil
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// ensureSession visits a quote page to collect cookies, then fetches the
// crumb token the quote API demands. The crumb is cached until a request
// comes back unauthorized.
func (p *Provider) ensureSession(ctx context.Context) (string, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.crumb != "" { return p.crumb, nil }

    req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.InitURL, http.NoBody)
    if err != nil { return "", err }
    req.Header.Set("User-Agent", browserUserAgent)
    resp, err := p.client.Do(req)
    if err != nil { return "", err }
    io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
    resp.Body.Close()

    req, err = http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.CrumbURL, http.NoBody)
    if err != nil { return "", err }
    req.Header.Set("User-Agent", browserUserAgent)
    resp, err = p.client.Do(req)
    if err != nil { return "", err }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return "", fmt.Errorf("GET %s -> %d", p.cfg.CrumbURL, resp.StatusCode)
    }
    b, err := io.ReadAll(io.LimitReader(resp.Body, 256))
    if err != nil { return "", err }
    crumb := strings.TrimSpace(string(b))
    if crumb == "" || strings.Contains(crumb, "<") {
        return "", fmt.Errorf("unusable crumb %q", crumb)
    }
    p.crumb = crumb
    return crumb, nil
}
