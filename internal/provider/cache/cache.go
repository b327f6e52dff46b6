package cache

import (
    "context"
    "strings"
    "sync"
    "time"

    "holdingsync/internal/provider"
)

// entry stores a cached quote for a single symbol+currency with expiry.
type entry struct {
    expiresAt time.Time
    quote     provider.Quote
}

// Provider caches quotes per symbol and target currency for a TTL.
// It requests only missing symbols from the underlying provider and
// combines cached + fresh results, so a manual sync shortly after a
// scheduled one does not spend upstream quota again.
type Provider struct {
    P   provider.Provider
    TTL time.Duration

    mu    sync.RWMutex
    items map[string]entry // key: folded symbol + "|" + currency
}

func (c *Provider) Name() string    { return c.P.Name() }
func (c *Provider) Available() bool { return c.P.Available() }

func key(symbol, currency string) string {
    return provider.FoldSymbol(symbol) + "|" + strings.ToUpper(currency)
}

// Fetch returns quotes for requested symbols using the cache when valid.
func (c *Provider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    if c.TTL <= 0 {
        return c.P.Fetch(ctx, symbols, currency)
    }

    now := time.Now()
    cached := make([]provider.Quote, 0, len(symbols))
    missing := make([]string, 0, len(symbols))

    c.mu.RLock()
    for _, s := range symbols {
        if e, ok := c.items[key(s, currency)]; ok && now.Before(e.expiresAt) {
            q := e.quote
            q.Symbol = s // answer with the requested spelling
            cached = append(cached, q)
            continue
        }
        missing = append(missing, s)
    }
    c.mu.RUnlock()

    if len(missing) == 0 {
        return cached, nil
    }

    fresh, err := c.P.Fetch(ctx, missing, currency)
    if err != nil {
        // partial cached data beats failing the whole batch
        if len(cached) > 0 { return cached, nil }
        return nil, err
    }

    expiry := now.Add(c.TTL)
    c.mu.Lock()
    if c.items == nil { c.items = make(map[string]entry, len(fresh)) }
    for _, q := range fresh {
        c.items[key(q.Symbol, currency)] = entry{expiresAt: expiry, quote: q}
    }
    c.mu.Unlock()

    return append(cached, fresh...), nil
}
