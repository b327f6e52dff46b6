package resolver

import (
    "context"

    "github.com/rs/zerolog"

    "holdingsync/internal/provider"
)

// Result is the partition a resolution run produces: every requested
// symbol lands in exactly one of the two lists.
type Result struct {
    Found    []provider.Quote `json:"found"`
    NotFound []string         `json:"not_found"`
}

// Options tune a single resolution run.
type Options struct {
    // LogUnresolved emits a warning listing the symbols no provider could
    // price. The scheduled sync sets this; ad-hoc API lookups do not.
    LogUnresolved bool
}

// Resolver tries an ordered list of providers against a symbol set until
// every symbol has a price or the providers are exhausted. The order is
// fixed at construction: fastest and most reliable sources first, strictly
// rate-limited ones last. A provider that fails is logged and skipped; a
// provider that answers a symbol removes it from the pool, so later
// providers are never asked about it again.
type Resolver struct {
    providers []provider.Provider
    log       zerolog.Logger
}

// New filters candidates down to the available ones, keeping their order.
// Unavailable providers (missing credential/config) are dropped here once;
// availability is not re-checked per call.
func New(candidates []provider.Provider, log zerolog.Logger) *Resolver {
    r := &Resolver{log: log.With().Str("component", "resolver").Logger()}
    for _, p := range candidates {
        if p.Available() {
            r.providers = append(r.providers, p)
            continue
        }
        r.log.Info().Str("provider", p.Name()).Msg("provider not configured, skipping")
    }
    return r
}

// Providers returns the names of the active providers in priority order.
func (r *Resolver) Providers() []string {
    names := make([]string, 0, len(r.providers))
    for _, p := range r.providers { names = append(names, p.Name()) }
    return names
}

// Resolve finds a price for each symbol in the target currency. Duplicate
// symbols (case-insensitive) are collapsed. The result order follows
// provider answers, not the input; callers needing input order must sort.
// Resolve itself never fails: total provider failure just means every
// symbol ends up in NotFound.
func (r *Resolver) Resolve(ctx context.Context, symbols []string, currency string, opts Options) Result {
    res := Result{Found: []provider.Quote{}, NotFound: []string{}}
    if len(symbols) == 0 { return res }

    // remaining tracks unresolved symbols by folded form; order preserves
    // first appearance so NotFound is stable.
    remaining := make(map[string]string, len(symbols))
    order := make([]string, 0, len(symbols))
    for _, s := range symbols {
        f := provider.FoldSymbol(s)
        if f == "" { continue }
        if _, dup := remaining[f]; dup { continue }
        remaining[f] = s
        order = append(order, f)
    }
    if len(remaining) == 0 { return res }

    for _, p := range r.providers {
        if len(remaining) == 0 { break }
        if ctx.Err() != nil { break }

        batch := make([]string, 0, len(remaining))
        for _, f := range order {
            if orig, ok := remaining[f]; ok { batch = append(batch, orig) }
        }

        quotes, err := p.Fetch(ctx, batch, currency)
        if err != nil {
            // one provider failing never aborts the run
            r.log.Warn().Err(err).Str("provider", p.Name()).
                Int("symbols", len(batch)).Msg("provider failed, trying next")
            continue
        }
        claimed := 0
        for _, q := range quotes {
            f := provider.FoldSymbol(q.Symbol)
            if _, ok := remaining[f]; !ok {
                // a quote for a symbol the provider was not asked about
                r.log.Debug().Str("provider", p.Name()).Str("symbol", q.Symbol).
                    Msg("dropping unrequested quote")
                continue
            }
            if q.Price <= 0 { continue }
            res.Found = append(res.Found, q)
            delete(remaining, f)
            claimed++
        }
        r.log.Debug().Str("provider", p.Name()).
            Int("claimed", claimed).Int("remaining", len(remaining)).
            Msg("provider pass done")
    }

    for _, f := range order {
        if orig, ok := remaining[f]; ok { res.NotFound = append(res.NotFound, orig) }
    }
    if opts.LogUnresolved && len(res.NotFound) > 0 {
        r.log.Warn().Strs("symbols", res.NotFound).Msg("no provider could price these symbols")
    }
    return res
}
