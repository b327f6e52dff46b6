package currency

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
    "golang.org/x/sync/singleflight"

    "holdingsync/internal/httpx"
)

const defaultTTL = 30 * time.Minute

// Converter converts amounts between currencies using a fetched rate table
// per base currency. One fetch yields the rates to every target currency,
// so the cache is keyed by base only. Convert never fails: any lookup
// problem degrades to returning the original amount.
type Converter struct {
    client  *httpx.Client
    log     zerolog.Logger
    baseURL string
    ttl     time.Duration
    now     func() time.Time

    mu    sync.Mutex
    cache map[string]rateEntry // key: upper-cased base currency

    // coalesce concurrent table fetches per base
    sf singleflight.Group
}

type rateEntry struct {
    rates     map[string]float64
    fetchedAt time.Time
}

type Option func(*Converter)

// WithBaseURL overrides the rate API endpoint (tests point this at a fake).
func WithBaseURL(u string) Option { return func(c *Converter) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithTTL overrides the 30-minute cache validity.
func WithTTL(d time.Duration) Option { return func(c *Converter) { if d > 0 { c.ttl = d } } }

// WithClock injects a fake clock for tests.
func WithClock(now func() time.Time) Option { return func(c *Converter) { c.now = now } }

func New(client *httpx.Client, log zerolog.Logger, opts ...Option) *Converter {
    c := &Converter{
        client:  client,
        log:     log.With().Str("component", "currency").Logger(),
        baseURL: "https://open.er-api.com/v6/latest",
        ttl:     defaultTTL,
        now:     time.Now,
        cache:   make(map[string]rateEntry),
    }
    for _, o := range opts { o(c) }
    return c
}

// Convert returns amount converted from one currency to another.
// Same-currency conversions return immediately without I/O. On any fetch
// failure or missing rate the original amount is returned unchanged;
// conversion problems are logged, never propagated.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) float64 {
    from = strings.ToUpper(strings.TrimSpace(from))
    to = strings.ToUpper(strings.TrimSpace(to))
    if from == "" || to == "" || from == to { return amount }

    rate, err := c.rate(ctx, from, to)
    if err != nil {
        c.log.Warn().Err(err).Str("from", from).Str("to", to).
            Msg("conversion failed, keeping original amount")
        return amount
    }
    return amount * rate
}

func (c *Converter) rate(ctx context.Context, from, to string) (float64, error) {
    now := c.now()

    c.mu.Lock()
    if e, ok := c.cache[from]; ok && now.Sub(e.fetchedAt) < c.ttl {
        r, ok := e.rates[to]
        c.mu.Unlock()
        if !ok || r <= 0 { return 0, fmt.Errorf("no rate %s->%s in cached table", from, to) }
        return r, nil
    }
    c.mu.Unlock()

    v, err, _ := c.sf.Do(from, func() (any, error) {
        rates, err := c.fetchTable(ctx, from)
        if err != nil { return nil, err }
        c.mu.Lock()
        c.cache[from] = rateEntry{rates: rates, fetchedAt: c.now()}
        c.mu.Unlock()
        return rates, nil
    })
    if err != nil { return 0, err }

    rates := v.(map[string]float64)
    r, ok := rates[to]
    if !ok || r <= 0 { return 0, fmt.Errorf("no rate %s->%s in fetched table", from, to) }
    return r, nil
}

type apiResponse struct {
    Result string             `json:"result"`
    Rates  map[string]float64 `json:"rates"`
}

func (c *Converter) fetchTable(ctx context.Context, base string) (map[string]float64, error) {
    var body apiResponse
    url := fmt.Sprintf("%s/%s", c.baseURL, base)
    if err := c.client.GetJSON(ctx, url, &body); err != nil { return nil, err }
    if body.Result != "" && body.Result != "success" {
        return nil, fmt.Errorf("rate api result=%q for base %s", body.Result, base)
    }
    if len(body.Rates) == 0 {
        return nil, fmt.Errorf("rate api returned empty table for base %s", base)
    }
    return body.Rates, nil
}
