package store

import (
    "context"
    "fmt"
    "os"

    "github.com/shopspring/decimal"
    "gopkg.in/yaml.v3"
)

// portfolioFile is the YAML shape users maintain by hand:
//
//	holdings:
//	  - symbol: AAPL
//	    amount: 10
//	    account: Depot
//	  - symbol: BTC
//	    amount: 0.25
//	    account: Crypto
type portfolioFile struct {
    Holdings []portfolioEntry `yaml:"holdings"`
}

type portfolioEntry struct {
    Symbol  string          `yaml:"symbol"`
    Amount  decimal.Decimal `yaml:"amount"`
    Account string          `yaml:"account"`
}

// ImportPortfolio reads a YAML portfolio file and replaces all stored
// holdings with its rows. Entries must carry a symbol, a non-negative
// amount and an account; anything else fails the whole import so a typo
// cannot half-apply.
func (s *Store) ImportPortfolio(ctx context.Context, path string) (int, error) {
    b, err := os.ReadFile(path)
    if err != nil { return 0, fmt.Errorf("read portfolio: %w", err) }
    return s.ImportPortfolioBytes(ctx, b)
}

// ImportPortfolioBytes is ImportPortfolio on an in-memory document
// (used by the HTTP import endpoint).
func (s *Store) ImportPortfolioBytes(ctx context.Context, doc []byte) (int, error) {
    var pf portfolioFile
    if err := yaml.Unmarshal(doc, &pf); err != nil {
        return 0, fmt.Errorf("parse portfolio: %w", err)
    }

    holdings := make([]Holding, 0, len(pf.Holdings))
    for i, e := range pf.Holdings {
        if e.Symbol == "" {
            return 0, fmt.Errorf("portfolio entry %d: missing symbol", i)
        }
        if e.Account == "" {
            return 0, fmt.Errorf("portfolio entry %d (%s): missing account", i, e.Symbol)
        }
        if e.Amount.IsNegative() {
            return 0, fmt.Errorf("portfolio entry %d (%s): negative amount", i, e.Symbol)
        }
        holdings = append(holdings, Holding{Symbol: e.Symbol, Amount: e.Amount, AccountID: e.Account})
    }

    if err := s.ReplaceAll(ctx, holdings); err != nil {
        return 0, fmt.Errorf("replace holdings: %w", err)
    }
    return len(holdings), nil
}
