package main

import (
    "context"
    "encoding/json"
    "flag"
    "os"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog"

    "holdingsync/internal/config"
    "holdingsync/internal/currency"
    "holdingsync/internal/httpx"
    "holdingsync/internal/ledger"
    "holdingsync/internal/logger"
    "holdingsync/internal/provider"
    "holdingsync/internal/provider/alphavantage"
    "holdingsync/internal/provider/cache"
    "holdingsync/internal/provider/cryptocompare"
    "holdingsync/internal/provider/finnhub"
    "holdingsync/internal/provider/fmp"
    "holdingsync/internal/provider/tradegate"
    "holdingsync/internal/provider/yahoo"
    "holdingsync/internal/resolver"
    "holdingsync/internal/store"
    syncsvc "holdingsync/internal/sync"
)

// One-shot sync run for cron or manual use. Reads the same config as the
// server, runs the sync sequence once and prints the report as JSON.
func main() {
    configPath := flag.String("config", "", "path to YAML config file")
    portfolio := flag.String("portfolio", "", "portfolio YAML to import before syncing (overrides config)")
    timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
    flag.Parse()

    godotenv.Load()

    cfg, err := config.Load(*configPath)
    if err != nil {
        l := logger.New(logger.Config{})
        l.Fatal().Err(err).Msg("load config")
    }
    log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true})

    ctx, cancel := context.WithTimeout(context.Background(), *timeout)
    defer cancel()

    st, err := store.Open(cfg.DatabasePath)
    if err != nil { log.Fatal().Err(err).Msg("open store") }
    defer st.Close()

    file := cfg.Sync.PortfolioFile
    if *portfolio != "" { file = *portfolio }
    if file != "" {
        n, err := st.ImportPortfolio(ctx, file)
        if err != nil { log.Fatal().Err(err).Str("file", file).Msg("import portfolio") }
        log.Info().Int("holdings", n).Str("file", file).Msg("portfolio imported")
    }

    hc := httpx.New(15 * time.Second)
    conv := currency.New(hc, log)
    res := resolver.New(buildProviders(cfg.Providers, hc, conv, log), log)

    var opts []ledger.ClientOption
    if cfg.Ledger.BaseURL != "" { opts = append(opts, ledger.WithBaseURL(cfg.Ledger.BaseURL)) }
    led, err := ledger.NewClient(cfg.Ledger.Token, opts...)
    if err != nil { log.Fatal().Err(err).Msg("ledger client") }

    report, err := syncsvc.New(st, res, led, cfg.Ledger.BudgetID, log).RunContext(ctx)
    if err != nil { log.Fatal().Err(err).Msg("sync failed") }

    enc := json.NewEncoder(os.Stdout)
    enc.SetIndent("", "  ")
    enc.Encode(report)
}

func buildProviders(cfg config.Providers, hc *httpx.Client, conv provider.Converter, log zerolog.Logger) []provider.Provider {
    ttl := time.Duration(cfg.QuoteCacheTTLSec) * time.Second
    withCache := func(p provider.Provider) provider.Provider {
        return &cache.Provider{P: p, TTL: ttl}
    }

    chain := []provider.Provider{
        cryptocompare.New(cryptocompare.Config{APIKey: cfg.CryptoCompare.APIKey}, hc, log),
        yahoo.New(yahoo.Config{}, 15*time.Second, conv, log),
    }
    if cfg.Tradegate.Enabled {
        chain = append(chain, tradegate.New(tradegate.Config{PageIntervalMs: cfg.Tradegate.PageIntervalMs}, hc, conv, log))
    }
    chain = append(chain,
        withCache(fmp.New(fmp.Config{APIKey: cfg.FMP.APIKey, DailyLimit: cfg.FMP.DailyLimit}, hc, conv, log)),
        withCache(finnhub.New(finnhub.Config{APIKey: cfg.Finnhub.APIKey, RequestsPerMinute: cfg.Finnhub.RequestsPerMinute}, hc, conv, log)),
        withCache(alphavantage.New(alphavantage.Config{APIKey: cfg.AlphaVantage.APIKey, RequestsPerMinute: cfg.AlphaVantage.RequestsPerMinute}, hc, conv, log)),
    )
    return chain
}
