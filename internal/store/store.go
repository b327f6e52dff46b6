package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"
    _ "modernc.org/sqlite"

    "holdingsync/internal/reconcile"
)

// ErrNotFound is returned when a holding id does not exist.
var ErrNotFound = errors.New("holding not found")

// Holding is one stored position row.
type Holding struct {
    ID        string          `json:"id"`
    Symbol    string          `json:"symbol"`
    Amount    decimal.Decimal `json:"amount"`
    AccountID string          `json:"account_id"`
}

// Store persists holdings in a local sqlite database. The core never
// mutates holdings; only the CRUD surface and the portfolio import do.
type Store struct {
    db *sql.DB
}

// Open opens (and bootstraps) the database at path. Use ":memory:" in
// tests.
func Open(path string) (*Store, error) {
    db, err := sql.Open("sqlite", path)
    if err != nil { return nil, fmt.Errorf("open database: %w", err) }
    if _, err := db.Exec(schema); err != nil {
        db.Close()
        return nil, fmt.Errorf("apply schema: %w", err)
    }
    return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS holdings (
    id         TEXT PRIMARY KEY,
    symbol     TEXT NOT NULL,
    amount     TEXT NOT NULL,
    account_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_holdings_account ON holdings(account_id);
`

// List returns all holdings.
func (s *Store) List(ctx context.Context) ([]Holding, error) {
    return s.query(ctx, `SELECT id, symbol, amount, account_id FROM holdings ORDER BY account_id, symbol`)
}

// ListByAccount returns the holdings of one account.
func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]Holding, error) {
    return s.query(ctx, `SELECT id, symbol, amount, account_id FROM holdings WHERE account_id = ? ORDER BY symbol`, accountID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Holding, error) {
    rows, err := s.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []Holding
    for rows.Next() {
        var h Holding
        var amount string
        if err := rows.Scan(&h.ID, &h.Symbol, &amount, &h.AccountID); err != nil {
            return nil, err
        }
        h.Amount, err = decimal.NewFromString(amount)
        if err != nil { return nil, fmt.Errorf("holding %s: bad amount %q: %w", h.ID, amount, err) }
        out = append(out, h)
    }
    return out, rows.Err()
}

// Create inserts a holding and returns it with its generated id.
func (s *Store) Create(ctx context.Context, h Holding) (Holding, error) {
    if h.ID == "" { h.ID = uuid.NewString() }
    _, err := s.db.ExecContext(ctx,
        `INSERT INTO holdings (id, symbol, amount, account_id) VALUES (?, ?, ?, ?)`,
        h.ID, h.Symbol, h.Amount.String(), h.AccountID)
    if err != nil { return Holding{}, err }
    return h, nil
}

// Update replaces the mutable fields of a holding.
func (s *Store) Update(ctx context.Context, h Holding) error {
    res, err := s.db.ExecContext(ctx,
        `UPDATE holdings SET symbol = ?, amount = ?, account_id = ? WHERE id = ?`,
        h.Symbol, h.Amount.String(), h.AccountID, h.ID)
    if err != nil { return err }
    n, err := res.RowsAffected()
    if err != nil { return err }
    if n == 0 { return ErrNotFound }
    return nil
}

// Delete removes a holding by id.
func (s *Store) Delete(ctx context.Context, id string) error {
    res, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
    if err != nil { return err }
    n, err := res.RowsAffected()
    if err != nil { return err }
    if n == 0 { return ErrNotFound }
    return nil
}

// ReplaceAll swaps the whole table for the given rows in one transaction.
// The portfolio file import uses this: the file is the source of truth.
func (s *Store) ReplaceAll(ctx context.Context, holdings []Holding) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer tx.Rollback()

    if _, err := tx.ExecContext(ctx, `DELETE FROM holdings`); err != nil { return err }
    for _, h := range holdings {
        if h.ID == "" { h.ID = uuid.NewString() }
        if _, err := tx.ExecContext(ctx,
            `INSERT INTO holdings (id, symbol, amount, account_id) VALUES (?, ?, ?, ?)`,
            h.ID, h.Symbol, h.Amount.String(), h.AccountID); err != nil {
            return err
        }
    }
    return tx.Commit()
}

// ForReconciliation converts store rows to the calculator's read-only
// holding shape.
func ForReconciliation(holdings []Holding) []reconcile.Holding {
    out := make([]reconcile.Holding, 0, len(holdings))
    for _, h := range holdings {
        out = append(out, reconcile.Holding{Symbol: h.Symbol, Amount: h.Amount, AccountID: h.AccountID})
    }
    return out
}
