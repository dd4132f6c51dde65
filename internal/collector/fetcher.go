package collector

import (
	"context"
	"errors"
	"fmt"

	"QuoteSentinel/internal/model"
)

var (
	// ErrRateLimited is returned when the upstream refuses a call because of
	// its request quota.
	ErrRateLimited = errors.New("upstream rate limit reached")
	// ErrNotFound is returned when the upstream does not know the symbol.
	ErrNotFound = errors.New("symbol not found upstream")
)

// Fetcher defines the interface for fetching daily bars from an upstream provider.
type Fetcher interface {
	// FetchDaily returns recent daily bars ascending by date.
	FetchDaily(ctx context.Context, symbol string) ([]model.Bar, error)
	Name() string
}

// UpstreamError wraps every failure reported by a Fetcher.
type UpstreamError struct {
	Source string
	Symbol string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err was caused by an upstream quota.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func upstreamErr(source, symbol string, err error) error {
	return &UpstreamError{Source: source, Symbol: symbol, Err: err}
}

// lastN keeps the n most recent bars of an ascending slice.
func lastN(bars []model.Bar, n int) []model.Bar {
	if n > 0 && len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}
