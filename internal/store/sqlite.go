package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"QuoteSentinel/internal/model"
)

// farFuture is an upper bound above every valid bar date.
const farFuture = "9999-12-31"

// SQLiteStore persists quotes, refresh timestamps and the watchlist to SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes
	// readers behind an in-flight upsert transaction.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite quote store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	sym := NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("upsert", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO quotes
		(symbol, date, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		tx.Rollback()
		return storageErr("upsert", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if !validDate(b.Date) {
			continue
		}
		if _, err := stmt.ExecContext(ctx, sym, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			// One bad bar must not abort the rest of the batch.
			log.Printf("[WARN] upsert %s %s: %v", sym, b.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("upsert", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, symbol string, q ReadQuery) ([]model.Bar, error) {
	from, to := q.From, q.To
	if to == "" {
		to = farFuture
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume FROM (
			SELECT date, open, high, low, close, volume FROM quotes
			WHERE symbol = ? AND date >= ? AND date <= ?
			ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`,
		NormalizeSymbol(symbol), from, to, limit)
	if err != nil {
		return nil, storageErr("read", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, storageErr("read", err)
		}
		b.Price = b.Close
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read", err)
	}
	return bars, nil
}

func (s *SQLiteStore) SetRefreshed(ctx context.Context, symbol string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO meta (symbol, last_refreshed) VALUES (?,?)
		ON CONFLICT(symbol) DO UPDATE SET last_refreshed = excluded.last_refreshed`,
		NormalizeSymbol(symbol), ts.UnixMilli())
	return storageErr("set refreshed", err)
}

func (s *SQLiteStore) GetRefreshed(ctx context.Context, symbol string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_refreshed FROM meta WHERE symbol = ?`,
		NormalizeSymbol(symbol)).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, storageErr("get refreshed", err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *SQLiteStore) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes WHERE symbol = ?`,
		NormalizeSymbol(symbol)).Scan(&n)
	if err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Clear removes all quotes and refresh timestamps. The watchlist is kept.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range []string{`DELETE FROM quotes`, `DELETE FROM meta`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("clear", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM watchlist ORDER BY position`)
	if err != nil {
		return nil, storageErr("symbols", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, storageErr("symbols", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, storageErr("symbols", rows.Err())
}

func (s *SQLiteStore) SaveSymbols(ctx context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("save symbols", err)
	}
	if err := writeWatchlist(ctx, tx, NormalizeSymbols(symbols)); err != nil {
		tx.Rollback()
		return storageErr("save symbols", err)
	}
	return storageErr("save symbols", tx.Commit())
}

func writeWatchlist(ctx context.Context, tx *sql.Tx, symbols []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
		return err
	}
	for i, sym := range symbols {
		if _, err := tx.ExecContext(ctx, `INSERT INTO watchlist (position, symbol) VALUES (?,?)`, i, sym); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite quote store")
	return s.db.Close()
}
