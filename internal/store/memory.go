package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"QuoteSentinel/internal/model"
)

// MemoryStore is an in-process QuoteStore used when SQLite is not configured.
// Contents are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	quotes    map[string]map[string]model.Bar
	refreshed map[string]time.Time
	watchlist []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes:    make(map[string]map[string]model.Bar),
		refreshed: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	sym := NormalizeSymbol(symbol)

	m.mu.Lock()
	defer m.mu.Unlock()

	byDate := m.quotes[sym]
	if byDate == nil {
		byDate = make(map[string]model.Bar, len(bars))
		m.quotes[sym] = byDate
	}
	for _, b := range bars {
		if !validDate(b.Date) {
			continue
		}
		b.Price = b.Close
		byDate[b.Date] = b
	}
	return nil
}

func (m *MemoryStore) Read(_ context.Context, symbol string, q ReadQuery) ([]model.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bars []model.Bar
	for date, b := range m.quotes[NormalizeSymbol(symbol)] {
		if q.inRange(date) {
			bars = append(bars, b)
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })

	if q.Limit > 0 && len(bars) > q.Limit {
		bars = bars[len(bars)-q.Limit:]
	}
	return bars, nil
}

func (m *MemoryStore) SetRefreshed(_ context.Context, symbol string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed[NormalizeSymbol(symbol)] = ts
	return nil
}

func (m *MemoryStore) GetRefreshed(_ context.Context, symbol string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.refreshed[NormalizeSymbol(symbol)]
	return ts, ok, nil
}

func (m *MemoryStore) Count(_ context.Context, symbol string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quotes[NormalizeSymbol(symbol)]), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = make(map[string]map[string]model.Bar)
	m.refreshed = make(map[string]time.Time)
	return nil
}

func (m *MemoryStore) Symbols(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.watchlist...), nil
}

func (m *MemoryStore) SaveSymbols(_ context.Context, symbols []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchlist = NormalizeSymbols(symbols)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
