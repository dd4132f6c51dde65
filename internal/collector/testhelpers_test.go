package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/store"
)

var errBoom = errors.New("boom")

// fakeFetcher returns canned bars or errors per symbol and counts calls.
type fakeFetcher struct {
	mu      sync.Mutex
	bars    map[string][]model.Bar
	errs    map[string]error
	calls   map[string]int
	onFetch func(symbol string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bars:  make(map[string][]model.Bar),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchDaily(ctx context.Context, symbol string) ([]model.Bar, error) {
	f.mu.Lock()
	f.calls[symbol]++
	hook := f.onFetch
	bars, err := f.bars[symbol], f.errs[symbol]
	f.mu.Unlock()

	if hook != nil {
		hook(symbol)
	}
	if err != nil {
		return nil, upstreamErr(f.Name(), symbol, err)
	}
	return bars, nil
}

func (f *fakeFetcher) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// brokenStore fails every read and write of quotes, meta and watchlist.
type brokenStore struct{ *store.MemoryStore }

func newBrokenStore() brokenStore { return brokenStore{store.NewMemoryStore()} }

var errDisk = &store.StorageError{Op: "test", Err: errors.New("disk gone")}

func (brokenStore) Upsert(context.Context, string, []model.Bar) error { return errDisk }
func (brokenStore) Read(context.Context, string, store.ReadQuery) ([]model.Bar, error) {
	return nil, errDisk
}
func (brokenStore) SetRefreshed(context.Context, string, time.Time) error { return errDisk }
func (brokenStore) GetRefreshed(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errDisk
}
func (brokenStore) Symbols(context.Context) ([]string, error)   { return nil, errDisk }
func (brokenStore) SaveSymbols(context.Context, []string) error { return errDisk }

var clock0 = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

// dailyBars returns n consecutive bars ending the day before end.
func dailyBars(n int, end time.Time, base float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		c := base + float64(i)
		bars[i] = model.Bar{
			Date:   end.AddDate(0, 0, -(n - i)).Format(model.DateLayout),
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
			Price:  c,
		}
	}
	return bars
}

func testOptions() Options {
	return Options{
		History:  60,
		FreshTTL: 15 * time.Minute,
		MinRows:  20,
		Seed:     7,
		Now:      func() time.Time { return clock0 },
	}
}

func symbolsOf(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%d", i+1)
	}
	return out
}
