package server

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"

    "holdingsync/internal/ledger"
    "holdingsync/internal/provider"
    "holdingsync/internal/resolver"
    "holdingsync/internal/store"
    "holdingsync/internal/sync"
)

type staticProvider struct {
    prices map[string]float64
}

func (p *staticProvider) Name() string    { return "static" }
func (p *staticProvider) Available() bool { return true }

func (p *staticProvider) Fetch(ctx context.Context, symbols []string, currency string) ([]provider.Quote, error) {
    var out []provider.Quote
    for _, s := range symbols {
        price, ok := p.prices[provider.FoldSymbol(s)]
        if !ok { continue }
        out = append(out, provider.Quote{Symbol: s, Price: price, Currency: currency, Source: "static"})
    }
    return out, nil
}

type staticLedger struct {
    accounts []ledger.Account
    created  []ledger.Transaction
}

func (l *staticLedger) ListAccounts(ctx context.Context, budgetID string) ([]ledger.Account, error) {
    return l.accounts, nil
}

func (l *staticLedger) CreateTransaction(ctx context.Context, budgetID string, tx ledger.Transaction) error {
    l.created = append(l.created, tx)
    return nil
}

func newTestServer(t *testing.T) (*Server, *store.Store, *staticLedger) {
    t.Helper()
    st, err := store.Open(":memory:")
    require.NoError(t, err)
    t.Cleanup(func() { st.Close() })

    res := resolver.New([]provider.Provider{
        &staticProvider{prices: map[string]float64{"AAPL": 150, "BTC": 40000}},
    }, zerolog.Nop())

    led := &staticLedger{accounts: []ledger.Account{
        {ID: "acc-1", Name: "Depot", Balance: 0, CurrencyCode: "USD"},
    }}
    syncer := sync.New(st, res, led, "budget-1", zerolog.Nop())

    return New("0", 5*time.Second, res, st, syncer, zerolog.Nop()), st, led
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    rec := httptest.NewRecorder()
    s.http.Handler.ServeHTTP(rec, req)
    return rec
}

func TestHealthz(t *testing.T) {
    s, _, _ := newTestServer(t)
    rec := doRequest(t, s, http.MethodGet, "/healthz", "")
    require.Equal(t, http.StatusOK, rec.Code)
}

func TestQuotesEndpoint(t *testing.T) {
    s, _, _ := newTestServer(t)

    rec := doRequest(t, s, http.MethodGet, "/api/quotes?symbols=AAPL,UNKNOWN&currency=USD", "")
    require.Equal(t, http.StatusOK, rec.Code)

    var result resolver.Result
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
    require.Len(t, result.Found, 1)
    require.Equal(t, "AAPL", result.Found[0].Symbol)
    require.Equal(t, []string{"UNKNOWN"}, result.NotFound)
}

func TestQuotesRequiresSymbols(t *testing.T) {
    s, _, _ := newTestServer(t)
    rec := doRequest(t, s, http.MethodGet, "/api/quotes", "")
    require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldingsCRUD(t *testing.T) {
    s, _, _ := newTestServer(t)

    rec := doRequest(t, s, http.MethodPost, "/api/holdings/", `{"symbol":"AAPL","amount":"10","account_id":"Depot"}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    var created store.Holding
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
    require.NotEmpty(t, created.ID)

    rec = doRequest(t, s, http.MethodGet, "/api/holdings/", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var list []store.Holding
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
    require.Len(t, list, 1)

    rec = doRequest(t, s, http.MethodPut, "/api/holdings/"+created.ID, `{"symbol":"AAPL","amount":"12","account_id":"Depot"}`)
    require.Equal(t, http.StatusOK, rec.Code)

    rec = doRequest(t, s, http.MethodDelete, "/api/holdings/"+created.ID, "")
    require.Equal(t, http.StatusNoContent, rec.Code)

    rec = doRequest(t, s, http.MethodDelete, "/api/holdings/"+created.ID, "")
    require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateHoldingRejectsBadInput(t *testing.T) {
    s, _, _ := newTestServer(t)

    cases := map[string]string{
        "missing symbol":  `{"amount":"1","account_id":"Depot"}`,
        "missing account": `{"symbol":"AAPL","amount":"1"}`,
        "negative amount": `{"symbol":"AAPL","amount":"-1","account_id":"Depot"}`,
        "not json":        `{{{`,
    }
    for name, body := range cases {
        rec := doRequest(t, s, http.MethodPost, "/api/holdings/", body)
        require.Equal(t, http.StatusBadRequest, rec.Code, name)
    }
}

func TestImportPortfolioEndpoint(t *testing.T) {
    s, st, _ := newTestServer(t)

    doc := "holdings:\n  - symbol: AAPL\n    amount: 10\n    account: Depot\n"
    rec := doRequest(t, s, http.MethodPost, "/api/portfolio/import", doc)
    require.Equal(t, http.StatusOK, rec.Code)

    all, err := st.List(context.Background())
    require.NoError(t, err)
    require.Len(t, all, 1)

    rec = doRequest(t, s, http.MethodPost, "/api/portfolio/import", "holdings:\n  - amount: 1\n")
    require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncEndpoint(t *testing.T) {
    s, st, led := newTestServer(t)

    _, err := st.Create(context.Background(), store.Holding{
        Symbol: "AAPL", Amount: decimal.RequireFromString("10"), AccountID: "Depot",
    })
    require.NoError(t, err)

    rec := doRequest(t, s, http.MethodPost, "/api/sync", "")
    require.Equal(t, http.StatusOK, rec.Code)

    var report sync.Report
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
    require.Equal(t, 1, report.Transactions)
    require.Len(t, led.created, 1)
    require.Equal(t, int64(1500_000), led.created[0].Amount)
}
