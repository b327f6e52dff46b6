package config

import (
    "errors"
    "fmt"
    "os"

    "gopkg.in/yaml.v3"
)

type Server struct {
    Port              string `yaml:"port"`
    RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

type Log struct {
    Level  string `yaml:"level"`
    Pretty bool   `yaml:"pretty"`
}

type Ledger struct {
    Token    string `yaml:"token"`
    BudgetID string `yaml:"budget_id"`
    BaseURL  string `yaml:"base_url"`
}

type Sync struct {
    Schedule      string `yaml:"schedule"`       // cron expression
    PortfolioFile string `yaml:"portfolio_file"` // optional YAML holdings file, imported at startup
}

type CryptoCompare struct {
    APIKey string `yaml:"api_key"`
}

type Tradegate struct {
    Enabled        bool `yaml:"enabled"`
    PageIntervalMs int  `yaml:"page_interval_ms"`
}

type FMP struct {
    APIKey     string `yaml:"api_key"`
    DailyLimit int    `yaml:"daily_limit"`
}

type Finnhub struct {
    APIKey            string `yaml:"api_key"`
    RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type AlphaVantage struct {
    APIKey            string `yaml:"api_key"`
    RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type Providers struct {
    CryptoCompare CryptoCompare `yaml:"cryptocompare"`
    Tradegate     Tradegate     `yaml:"tradegate"`
    FMP           FMP           `yaml:"fmp"`
    Finnhub       Finnhub       `yaml:"finnhub"`
    AlphaVantage  AlphaVantage  `yaml:"alphavantage"`
    // QuoteCacheTTLSec caches quotes from the quota-constrained providers.
    QuoteCacheTTLSec int `yaml:"quote_cache_ttl_sec"`
}

type Config struct {
    Server       Server    `yaml:"server"`
    Log          Log       `yaml:"log"`
    Ledger       Ledger    `yaml:"ledger"`
    Sync         Sync      `yaml:"sync"`
    Providers    Providers `yaml:"providers"`
    DatabasePath string    `yaml:"database_path"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10},
        Log:    Log{Level: "info", Pretty: false},
        Sync:   Sync{Schedule: "0 0 18 * * *"}, // daily at 18:00
        Providers: Providers{
            Tradegate:        Tradegate{Enabled: true, PageIntervalMs: 500},
            FMP:              FMP{DailyLimit: 250},
            Finnhub:          Finnhub{RequestsPerMinute: 60},
            AlphaVantage:     AlphaVantage{RequestsPerMinute: 5},
            QuoteCacheTTLSec: 300,
        },
        DatabasePath: "holdingsync.db",
    }
}

// Load reads YAML config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override the secret
// fields so credentials can stay out of the file.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.yml"); err == nil {
            path = "config.yml"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := yaml.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if v := os.Getenv("DATABASE_PATH"); v != "" { cfg.DatabasePath = v }
    if v := os.Getenv("LEDGER_TOKEN"); v != "" { cfg.Ledger.Token = v }
    if v := os.Getenv("LEDGER_BUDGET_ID"); v != "" { cfg.Ledger.BudgetID = v }
    if v := os.Getenv("LEDGER_BASE_URL"); v != "" { cfg.Ledger.BaseURL = v }
    if v := os.Getenv("SYNC_SCHEDULE"); v != "" { cfg.Sync.Schedule = v }
    if v := os.Getenv("PORTFOLIO_FILE"); v != "" { cfg.Sync.PortfolioFile = v }
    if v := os.Getenv("CRYPTOCOMPARE_API_KEY"); v != "" { cfg.Providers.CryptoCompare.APIKey = v }
    if v := os.Getenv("FMP_API_KEY"); v != "" { cfg.Providers.FMP.APIKey = v }
    if v := os.Getenv("FINNHUB_API_KEY"); v != "" { cfg.Providers.Finnhub.APIKey = v }
    if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" { cfg.Providers.AlphaVantage.APIKey = v }
}
