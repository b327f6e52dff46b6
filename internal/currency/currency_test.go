package currency

import (
    "context"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"

    "holdingsync/internal/httpx"
)

func newTestConverter(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Converter, *httptest.Server) {
    t.Helper()
    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)
    opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
    c := New(httpx.New(5*time.Second), zerolog.Nop(), opts...)
    return c, srv
}

func TestConvert_SameCurrencyNoNetworkCall(t *testing.T) {
    var calls int64
    c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt64(&calls, 1)
    })

    got := c.Convert(context.Background(), 100, "USD", "USD")
    require.Equal(t, 100.0, got)
    require.EqualValues(t, 0, atomic.LoadInt64(&calls))

    // case-insensitive comparison also short-circuits
    got = c.Convert(context.Background(), 42, "usd", "USD")
    require.Equal(t, 42.0, got)
    require.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestConvert_UsesRateTable(t *testing.T) {
    c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`{"result":"success","rates":{"EUR":0.9,"GBP":0.8}}`))
    })

    got := c.Convert(context.Background(), 100, "USD", "EUR")
    require.InDelta(t, 90.0, got, 1e-9)
}

func TestConvert_CacheHitWithinTTL(t *testing.T) {
    var calls int64
    clk := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
    now := func() time.Time { return clk }
    c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt64(&calls, 1)
        w.Write([]byte(`{"result":"success","rates":{"EUR":0.9}}`))
    }, WithClock(now))

    c.Convert(context.Background(), 100, "USD", "EUR")
    c.Convert(context.Background(), 200, "USD", "EUR")
    require.EqualValues(t, 1, atomic.LoadInt64(&calls), "second call must hit the cache")

    // stale entry refetches
    clk = clk.Add(31 * time.Minute)
    c.Convert(context.Background(), 300, "USD", "EUR")
    require.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestConvert_FailuresReturnOriginalAmount(t *testing.T) {
    t.Run("non-200", func(t *testing.T) {
        c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
            http.Error(w, "nope", http.StatusInternalServerError)
        })
        require.Equal(t, 100.0, c.Convert(context.Background(), 100, "USD", "EUR"))
    })

    t.Run("missing target rate", func(t *testing.T) {
        c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
            w.Write([]byte(`{"result":"success","rates":{"GBP":0.8}}`))
        })
        require.Equal(t, 100.0, c.Convert(context.Background(), 100, "USD", "EUR"))
    })

    t.Run("error result", func(t *testing.T) {
        c, _ := newTestConverter(t, func(w http.ResponseWriter, r *http.Request) {
            w.Write([]byte(`{"result":"error","rates":{}}`))
        })
        require.Equal(t, 100.0, c.Convert(context.Background(), 100, "USD", "EUR"))
    })

    t.Run("unreachable", func(t *testing.T) {
        srv := httptest.NewServer(http.NotFoundHandler())
        srv.Close()
        c := New(httpx.New(time.Second), zerolog.Nop(), WithBaseURL(srv.URL))
        require.Equal(t, 100.0, c.Convert(context.Background(), 100, "USD", "EUR"))
    })
}
