package server

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/go-chi/cors"
    "github.com/rs/zerolog"

    "holdingsync/internal/resolver"
    "holdingsync/internal/store"
    "holdingsync/internal/sync"
)

// Server exposes the HTTP API: quote lookups, holdings CRUD, portfolio
// import and a manual sync trigger.
type Server struct {
    resolver *resolver.Resolver
    store    *store.Store
    syncer   *sync.Service
    log      zerolog.Logger
    http     *http.Server
}

func New(port string, requestTimeout time.Duration, res *resolver.Resolver, st *store.Store, syncer *sync.Service, log zerolog.Logger) *Server {
    s := &Server{
        resolver: res,
        store:    st,
        syncer:   syncer,
        log:      log.With().Str("component", "server").Logger(),
    }

    r := chi.NewRouter()
    r.Use(middleware.Recoverer)
    r.Use(middleware.Timeout(requestTimeout))
    r.Use(cors.Handler(cors.Options{
        AllowedOrigins: []string{"*"},
        AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
        AllowedHeaders: []string{"Accept", "Content-Type"},
    }))

    r.Get("/healthz", s.handleHealth)
    r.Route("/api", func(r chi.Router) {
        r.Get("/quotes", s.handleQuotes)
        r.Get("/providers", s.handleProviders)
        r.Route("/holdings", func(r chi.Router) {
            r.Get("/", s.handleListHoldings)
            r.Post("/", s.handleCreateHolding)
            r.Put("/{id}", s.handleUpdateHolding)
            r.Delete("/{id}", s.handleDeleteHolding)
        })
        r.Post("/portfolio/import", s.handleImportPortfolio)
        r.Post("/sync", s.handleSync)
    })

    s.http = &http.Server{
        Addr:              ":" + port,
        Handler:           r,
        ReadHeaderTimeout: 5 * time.Second,
    }
    return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
    s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
    err := s.http.ListenAndServe()
    if errors.Is(err, http.ErrServerClosed) { return nil }
    return err
}

func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuotes resolves ?symbols=AAPL,BTC&currency=USD through the
// provider chain and returns found quotes plus unresolved symbols.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("symbols")
    if raw == "" {
        writeError(w, http.StatusBadRequest, "symbols query parameter is required")
        return
    }
    var symbols []string
    for _, part := range strings.Split(raw, ",") {
        if part = strings.TrimSpace(part); part != "" { symbols = append(symbols, part) }
    }
    currency := r.URL.Query().Get("currency")
    if currency == "" { currency = "USD" }

    result := s.resolver.Resolve(r.Context(), symbols, currency, resolver.Options{})
    writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string][]string{"providers": s.resolver.Providers()})
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
    holdings, err := s.store.List(r.Context())
    if err != nil {
        s.internalError(w, err, "list holdings")
        return
    }
    if holdings == nil { holdings = []store.Holding{} }
    writeJSON(w, http.StatusOK, holdings)
}

func (s *Server) handleCreateHolding(w http.ResponseWriter, r *http.Request) {
    var h store.Holding
    if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
        writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
        return
    }
    if h.Symbol == "" || h.AccountID == "" {
        writeError(w, http.StatusBadRequest, "symbol and account_id are required")
        return
    }
    if h.Amount.IsNegative() {
        writeError(w, http.StatusBadRequest, "amount must not be negative")
        return
    }
    created, err := s.store.Create(r.Context(), h)
    if err != nil {
        s.internalError(w, err, "create holding")
        return
    }
    writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
    var h store.Holding
    if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
        writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
        return
    }
    h.ID = chi.URLParam(r, "id")
    err := s.store.Update(r.Context(), h)
    if errors.Is(err, store.ErrNotFound) {
        writeError(w, http.StatusNotFound, "holding not found")
        return
    }
    if err != nil {
        s.internalError(w, err, "update holding")
        return
    }
    writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
    err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
    if errors.Is(err, store.ErrNotFound) {
        writeError(w, http.StatusNotFound, "holding not found")
        return
    }
    if err != nil {
        s.internalError(w, err, "delete holding")
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// handleImportPortfolio takes a YAML portfolio document as the request
// body and replaces all stored holdings with it.
func (s *Server) handleImportPortfolio(w http.ResponseWriter, r *http.Request) {
    doc, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
    if err != nil {
        writeError(w, http.StatusBadRequest, "read body: "+err.Error())
        return
    }
    n, err := s.store.ImportPortfolioBytes(r.Context(), doc)
    if err != nil {
        writeError(w, http.StatusBadRequest, err.Error())
        return
    }
    writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
    report, err := s.syncer.RunContext(r.Context())
    if err != nil {
        s.internalError(w, err, "sync")
        return
    }
    writeJSON(w, http.StatusOK, report)
}

func (s *Server) internalError(w http.ResponseWriter, err error, op string) {
    s.log.Error().Err(err).Msg(op + " failed")
    writeError(w, http.StatusInternalServerError, op+" failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
    writeJSON(w, status, map[string]string{"error": msg})
}
