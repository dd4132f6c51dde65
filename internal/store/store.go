package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"QuoteSentinel/internal/model"
)

// ReadQuery filters a Read. From and To are inclusive "YYYY-MM-DD" bounds;
// empty means unbounded. Limit > 0 keeps only the most recent Limit bars.
type ReadQuery struct {
	From  string
	To    string
	Limit int
}

// QuoteStore persists daily bars per symbol plus a per-symbol refresh
// timestamp. It is best effort: callers must tolerate total data loss.
type QuoteStore interface {
	// Upsert writes bars keyed by (symbol, date). Bars with a malformed date
	// are skipped. All bars of one call are applied as a single batch.
	Upsert(ctx context.Context, symbol string, bars []model.Bar) error
	// Read returns bars ascending by date.
	Read(ctx context.Context, symbol string, q ReadQuery) ([]model.Bar, error)
	SetRefreshed(ctx context.Context, symbol string, ts time.Time) error
	// GetRefreshed reports ok=false when no refresh was ever recorded.
	GetRefreshed(ctx context.Context, symbol string) (ts time.Time, ok bool, err error)
	Count(ctx context.Context, symbol string) (int, error)
	Clear(ctx context.Context) error
	// Symbols returns the persisted watchlist in insertion order.
	Symbols(ctx context.Context) ([]string, error)
	SaveSymbols(ctx context.Context, symbols []string) error
	Close() error
}

// StorageError reports a failure of the underlying storage medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// validDate reports whether d is a well-formed calendar date.
func validDate(d string) bool {
	_, err := time.Parse(model.DateLayout, d)
	return err == nil
}

// inRange applies the inclusive From/To bounds of q to date.
func (q ReadQuery) inRange(date string) bool {
	if q.From != "" && date < q.From {
		return false
	}
	if q.To != "" && date > q.To {
		return false
	}
	return true
}

// NormalizeSymbols normalizes symbols and drops blanks and repeats, keeping order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
