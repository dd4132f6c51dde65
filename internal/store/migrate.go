package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

const (
	legacyTable       = "legacy_cache"
	legacyCachePrefix = "qfd:cache:"
	legacySymbolsKey  = "qfd:symbols"
)

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = []func(ctx context.Context, tx *sql.Tx) error{
	createSchema,
	importLegacyCache,
}

func (s *SQLiteStore) migrate() error {
	ctx := context.Background()

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := migrations[v](ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", v+1, err)
		}
		log.Printf("[INFO] quote store schema migrated to v%d", v+1)
	}
	return nil
}

func createSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume REAL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			symbol         TEXT PRIMARY KEY,
			last_refreshed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			position INTEGER NOT NULL,
			symbol   TEXT NOT NULL UNIQUE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// legacyEntry is the JSON blob stored under qfd:cache:<SYM>.
type legacyEntry struct {
	TS   *int64      `json:"ts"`
	Rows []legacyRow `json:"rows"`
}

type legacyRow struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type legacyPair struct{ key, value string }

// importLegacyCache moves the flat key-value cache into the current tables.
// Rows already present in the current tables are kept.
func importLegacyCache(ctx context.Context, tx *sql.Tx) error {
	var name string
	err := tx.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, legacyTable).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	pairs, err := readLegacyPairs(ctx, tx)
	if err != nil {
		return err
	}

	imported := 0
	for _, p := range pairs {
		switch {
		case p.key == legacySymbolsKey:
			if err := importLegacySymbols(ctx, tx, p.value); err != nil {
				return err
			}
		case strings.HasPrefix(p.key, legacyCachePrefix):
			sym := NormalizeSymbol(strings.TrimPrefix(p.key, legacyCachePrefix))
			if sym == "" {
				continue
			}
			n, err := importLegacyEntry(ctx, tx, sym, p.value)
			if err != nil {
				return err
			}
			imported += n
		}
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE `+legacyTable); err != nil {
		return err
	}
	log.Printf("[INFO] imported %d legacy cache rows from %d keys", imported, len(pairs))
	return nil
}

func readLegacyPairs(ctx context.Context, tx *sql.Tx) ([]legacyPair, error) {
	rows, err := tx.QueryContext(ctx, `SELECT key, value FROM `+legacyTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []legacyPair
	for rows.Next() {
		var p legacyPair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func importLegacyEntry(ctx context.Context, tx *sql.Tx, sym, value string) (int, error) {
	var entry legacyEntry
	if err := json.Unmarshal([]byte(value), &entry); err != nil {
		log.Printf("[WARN] skipping unreadable legacy cache for %s: %v", sym, err)
		return 0, nil
	}

	n := 0
	for _, r := range entry.Rows {
		if !validDate(r.Date) {
			continue
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO quotes
			(symbol, date, open, high, low, close, volume) VALUES (?,?,?,?,?,?,?)`,
			sym, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume)
		if err != nil {
			return n, err
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}

	if entry.TS != nil && *entry.TS > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO meta (symbol, last_refreshed) VALUES (?,?)`, sym, *entry.TS); err != nil {
			return n, err
		}
	}
	return n, nil
}

func importLegacySymbols(ctx context.Context, tx *sql.Tx, value string) error {
	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var symbols []string
	if err := json.Unmarshal([]byte(value), &symbols); err != nil {
		log.Printf("[WARN] skipping unreadable legacy watchlist: %v", err)
		return nil
	}
	return writeWatchlist(ctx, tx, NormalizeSymbols(symbols))
}
