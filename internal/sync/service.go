package sync

import (
    "context"
    "fmt"
    "sort"
    "strings"
    gosync "sync"
    "time"

    "github.com/rs/zerolog"

    "holdingsync/internal/ledger"
    "holdingsync/internal/reconcile"
    "holdingsync/internal/resolver"
    "holdingsync/internal/store"
)

// Ledger is the budgeting-tool boundary the service writes to.
type Ledger interface {
    ListAccounts(ctx context.Context, budgetID string) ([]ledger.Account, error)
    CreateTransaction(ctx context.Context, budgetID string, tx ledger.Transaction) error
}

// Holdings is the read side of the holdings store.
type Holdings interface {
    List(ctx context.Context) ([]store.Holding, error)
}

// Resolver finds prices for a symbol set in one currency.
type Resolver interface {
    Resolve(ctx context.Context, symbols []string, currency string, opts resolver.Options) resolver.Result
}

// Report summarizes one sync run.
type Report struct {
    Accounts     int      `json:"accounts"`
    Transactions int      `json:"transactions"`
    Settled      int      `json:"settled"`
    NotFound     []string `json:"not_found,omitempty"`
}

// Service runs the full sync sequence: read holdings, resolve prices per
// account currency, reconcile each account and append the adjustment to
// the ledger. Provider problems degrade to unresolved symbols; a ledger
// write failure aborts the run.
type Service struct {
    holdings Holdings
    resolver Resolver
    ledger   Ledger
    budgetID string
    log      zerolog.Logger
    now      func() time.Time

    // serializes runs so a manual trigger overlapping the schedule cannot
    // double-post adjustments
    mu gosync.Mutex
}

func New(holdings Holdings, res Resolver, led Ledger, budgetID string, log zerolog.Logger) *Service {
    return &Service{
        holdings: holdings,
        resolver: res,
        ledger:   led,
        budgetID: budgetID,
        log:      log.With().Str("component", "sync").Logger(),
        now:      time.Now,
    }
}

// Name implements the scheduler Job interface.
func (s *Service) Name() string { return "holdings-sync" }

// Run implements the scheduler Job interface.
func (s *Service) Run() error {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()
    _, err := s.RunContext(ctx)
    return err
}

// RunContext executes one sync run.
func (s *Service) RunContext(ctx context.Context) (Report, error) {
    s.mu.Lock()
    defer s.mu.Unlock()

    var report Report

    rows, err := s.holdings.List(ctx)
    if err != nil { return report, fmt.Errorf("list holdings: %w", err) }
    if len(rows) == 0 {
        s.log.Info().Msg("no holdings configured, nothing to sync")
        return report, nil
    }

    accounts, err := s.ledger.ListAccounts(ctx, s.budgetID)
    if err != nil { return report, fmt.Errorf("list accounts: %w", err) }

    byAccount := groupByAccount(rows, accounts)
    if len(byAccount) == 0 {
        return report, fmt.Errorf("no holding matches any ledger account")
    }

    // one resolution per currency: accounts sharing a currency share the
    // price lookups
    quotesByCurrency := make(map[string]resolver.Result)
    notFound := map[string]struct{}{}
    for _, currency := range currencies(byAccount, accounts) {
        symbols := symbolsForCurrency(byAccount, accounts, currency)
        res := s.resolver.Resolve(ctx, symbols, currency, resolver.Options{LogUnresolved: true})
        quotesByCurrency[currency] = res
        for _, sym := range res.NotFound { notFound[sym] = struct{}{} }
    }

    for _, acc := range accounts {
        held, ok := byAccount[acc.ID]
        if !ok { continue }
        report.Accounts++

        res := quotesByCurrency[strings.ToUpper(acc.CurrencyCode)]
        outcome := reconcile.ComputeAdjustment(
            store.ForReconciliation(held),
            reconcile.Index(res.Found),
            acc.BalanceAmount(),
        )
        if outcome.Settled() {
            report.Settled++
            s.log.Info().Str("account", acc.Name).Msg("already reconciled, skipping")
            continue
        }

        target := outcome.TargetBalance
        memo := fmt.Sprintf("%s -> %s %s (%s)",
            outcome.CurrentBalance.StringFixed(2), target.StringFixed(2),
            acc.CurrencyCode, strings.Join(outcome.ContributingSymbols, ", "))

        tx := ledger.Transaction{
            AccountID: acc.ID,
            Amount:    ledger.ToMilliunits(outcome.Adjustment),
            Memo:      memo,
            Date:      s.now(),
            PayeeName: "Holdings Sync",
        }
        // the one hard failure: a lost balance write must abort the run
        if err := s.ledger.CreateTransaction(ctx, s.budgetID, tx); err != nil {
            return report, fmt.Errorf("write adjustment for %s: %w", acc.Name, err)
        }
        report.Transactions++
        s.log.Info().Str("account", acc.Name).
            Str("adjustment", outcome.Adjustment.StringFixed(2)).
            Str("currency", acc.CurrencyCode).
            Msg("adjustment posted")
    }

    report.NotFound = make([]string, 0, len(notFound))
    for sym := range notFound { report.NotFound = append(report.NotFound, sym) }
    sort.Strings(report.NotFound)
    return report, nil
}

// groupByAccount matches holdings to ledger accounts by account id or,
// as the portfolio file uses human names, by name (case-insensitive).
func groupByAccount(rows []store.Holding, accounts []ledger.Account) map[string][]store.Holding {
    byName := make(map[string]string, len(accounts))
    ids := make(map[string]struct{}, len(accounts))
    for _, a := range accounts {
        byName[strings.ToLower(a.Name)] = a.ID
        ids[a.ID] = struct{}{}
    }

    out := make(map[string][]store.Holding)
    for _, h := range rows {
        id := h.AccountID
        if _, ok := ids[id]; !ok {
            mapped, ok := byName[strings.ToLower(h.AccountID)]
            if !ok { continue }
            id = mapped
        }
        out[id] = append(out[id], h)
    }
    return out
}

func currencies(byAccount map[string][]store.Holding, accounts []ledger.Account) []string {
    seen := map[string]struct{}{}
    var out []string
    for _, a := range accounts {
        if _, ok := byAccount[a.ID]; !ok { continue }
        cur := strings.ToUpper(a.CurrencyCode)
        if _, dup := seen[cur]; dup { continue }
        seen[cur] = struct{}{}
        out = append(out, cur)
    }
    return out
}

func symbolsForCurrency(byAccount map[string][]store.Holding, accounts []ledger.Account, currency string) []string {
    seen := map[string]struct{}{}
    var out []string
    for _, a := range accounts {
        if !strings.EqualFold(a.CurrencyCode, currency) { continue }
        for _, h := range byAccount[a.ID] {
            key := strings.ToUpper(h.Symbol)
            if _, dup := seen[key]; dup { continue }
            seen[key] = struct{}{}
            out = append(out, h.Symbol)
        }
    }
    return out
}
