package main

import (
    "context"
    "flag"
    "os"
    "os/signal"
    "syscall"
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
    "holdingsync/internal/scheduler"
    "holdingsync/internal/server"
    "holdingsync/internal/store"
    syncsvc "holdingsync/internal/sync"
)

func main() {
    configPath := flag.String("config", "", "path to YAML config file")
    flag.Parse()

    godotenv.Load()

    cfg, err := config.Load(*configPath)
    if err != nil {
        l := logger.New(logger.Config{})
        l.Fatal().Err(err).Msg("load config")
    }
    log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

    st, err := store.Open(cfg.DatabasePath)
    if err != nil { log.Fatal().Err(err).Msg("open store") }
    defer st.Close()

    if cfg.Sync.PortfolioFile != "" {
        n, err := st.ImportPortfolio(context.Background(), cfg.Sync.PortfolioFile)
        if err != nil { log.Fatal().Err(err).Str("file", cfg.Sync.PortfolioFile).Msg("import portfolio") }
        log.Info().Int("holdings", n).Str("file", cfg.Sync.PortfolioFile).Msg("portfolio imported")
    }

    hc := httpx.New(15 * time.Second)
    conv := currency.New(hc, log)
    res := resolver.New(buildProviders(cfg.Providers, hc, conv, log), log)
    log.Info().Strs("providers", res.Providers()).Msg("provider chain ready")

    led, err := ledger.NewClient(cfg.Ledger.Token, ledgerOptions(cfg.Ledger)...)
    if err != nil { log.Fatal().Err(err).Msg("ledger client") }

    syncer := syncsvc.New(st, res, led, cfg.Ledger.BudgetID, log)

    sched := scheduler.New(log)
    if cfg.Sync.Schedule != "" {
        if err := sched.AddJob(cfg.Sync.Schedule, syncer); err != nil {
            log.Fatal().Err(err).Str("schedule", cfg.Sync.Schedule).Msg("register sync job")
        }
    }
    sched.Start()

    srv := server.New(cfg.Server.Port, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second, res, st, syncer, log)

    errCh := make(chan error, 1)
    go func() { errCh <- srv.Start() }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

    select {
    case err := <-errCh:
        if err != nil { log.Fatal().Err(err).Msg("http server") }
    case sig := <-quit:
        log.Info().Str("signal", sig.String()).Msg("shutting down")
    }

    sched.Stop()
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(ctx); err != nil { log.Error().Err(err).Msg("shutdown") }
}

func ledgerOptions(cfg config.Ledger) []ledger.ClientOption {
    var opts []ledger.ClientOption
    if cfg.BaseURL != "" { opts = append(opts, ledger.WithBaseURL(cfg.BaseURL)) }
    return opts
}

// buildProviders assembles the chain in priority order: cheap batch
// sources first, strictly rate-limited ones last. The quota-constrained
// tail is wrapped in a short-lived quote cache.
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
