package reconcile

import (
    "github.com/shopspring/decimal"

    "holdingsync/internal/provider"
)

// settledThreshold is the adjustment size below which an account counts as
// already reconciled. Anything smaller is float noise from upstream quotes
// and would only spam the ledger with dust transactions.
var settledThreshold = decimal.RequireFromString("0.01")

// Holding is one position read from the store: how much of a symbol an
// account holds. Read-only here; the store owns its lifecycle.
type Holding struct {
    Symbol    string
    Amount    decimal.Decimal
    AccountID string
}

// Result is the outcome of reconciling one account against resolved
// prices.
type Result struct {
    AccountID           string
    CurrentBalance      decimal.Decimal
    TargetBalance       decimal.Decimal
    Adjustment          decimal.Decimal // target - current, signed
    ContributingSymbols []string        // symbols actually priced, in holding order
}

// Settled reports whether the adjustment is too small to act on.
func (r Result) Settled() bool {
    return r.Adjustment.Abs().LessThan(settledThreshold)
}

// Index builds the symbol->quote lookup the calculator consumes, keyed
// case-insensitively. Non-positive quotes are dropped here so they can
// never contribute.
func Index(quotes []provider.Quote) map[string]provider.Quote {
    m := make(map[string]provider.Quote, len(quotes))
    for _, q := range quotes {
        if q.Price <= 0 { continue }
        m[provider.FoldSymbol(q.Symbol)] = q
    }
    return m
}

// ComputeAdjustment sums amount×price over the holdings that have a
// usable quote and diffs the total against the account's current balance.
// Holdings without a quote contribute nothing and are left out of
// ContributingSymbols; the resolver's NotFound list is the caller-visible
// diagnostic for those.
func ComputeAdjustment(holdings []Holding, quotes map[string]provider.Quote, currentBalance decimal.Decimal) Result {
    res := Result{
        CurrentBalance: currentBalance,
        TargetBalance:  decimal.Zero,
    }
    if len(holdings) > 0 { res.AccountID = holdings[0].AccountID }

    for _, h := range holdings {
        q, ok := quotes[provider.FoldSymbol(h.Symbol)]
        if !ok || q.Price <= 0 { continue }
        price := decimal.NewFromFloat(q.Price)
        res.TargetBalance = res.TargetBalance.Add(h.Amount.Mul(price))
        res.ContributingSymbols = append(res.ContributingSymbols, h.Symbol)
    }
    res.Adjustment = res.TargetBalance.Sub(currentBalance)
    return res
}
