package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"QuoteSentinel/internal/calculator"
	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/store"
)

// ErrBatchInFlight is returned by Prefetch while another batch is running.
var ErrBatchInFlight = errors.New("prefetch batch already in flight")

// ErrNoSymbols is returned by StartPrefetch when there is nothing to fetch.
var ErrNoSymbols = errors.New("no symbols to prefetch")

const (
	DefaultHistory   = 60
	DefaultFreshTTL  = 15 * time.Minute
	DefaultPaceDelay = 12 * time.Second
	DefaultMinRows   = 20

	// closeHour is the UTC hour assumed for a bar when no refresh time is known.
	closeHour = 16
)

// Options configures a Coordinator.
type Options struct {
	History   int           // bars kept per symbol
	FreshTTL  time.Duration // stored data younger than this skips the upstream
	PaceDelay time.Duration // pause between symbols of a batch; 0 disables
	MinRows   int           // stored rows needed to serve without upstream, capped at History
	Seed      int64         // synthetic data seed
	Now       func() time.Time
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		History:   DefaultHistory,
		FreshTTL:  DefaultFreshTTL,
		PaceDelay: DefaultPaceDelay,
		MinRows:   DefaultMinRows,
		Seed:      time.Now().UnixNano(),
		Now:       time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.History <= 0 {
		o.History = DefaultHistory
	}
	if o.FreshTTL <= 0 {
		o.FreshTTL = DefaultFreshTTL
	}
	if o.MinRows <= 0 {
		o.MinRows = DefaultMinRows
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Status is the observable progress of the coordinator.
type Status struct {
	Loading   bool                `json:"loading"`
	Message   string              `json:"status"`
	Error     string              `json:"error,omitempty"`
	LastBatch *model.BatchSummary `json:"lastBatch,omitempty"`
}

type heldData struct {
	bars    []model.EnrichedBar
	updated time.Time
	source  model.DataSource
}

// Coordinator resolves symbols against the store, the upstream and the
// synthetic generator, and holds the latest enriched bars per symbol.
type Coordinator struct {
	fetcher Fetcher
	store   store.QuoteStore
	opts    Options
	synth   *Synthetic

	busy atomic.Bool

	mu      sync.RWMutex
	held    map[string]heldData
	symbols []string
	status  Status
}

// NewCoordinator creates a coordinator. One instance serves the whole process.
func NewCoordinator(f Fetcher, s store.QuoteStore, opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		fetcher: f,
		store:   s,
		opts:    opts,
		synth:   NewSynthetic(opts.Seed),
		held:    make(map[string]heldData),
	}
}

func (c *Coordinator) minRows() int {
	return min(c.opts.History, c.opts.MinRows)
}

// FetchOne resolves a single symbol and holds the result. The only error it
// returns is the context's; every other failure degrades to stored or
// synthetic data.
func (c *Coordinator) FetchOne(ctx context.Context, symbol string) (model.FetchResult, error) {
	res, _, err := c.fetchOne(ctx, store.NormalizeSymbol(symbol))
	if err != nil {
		return res, err
	}
	c.merge(res)
	return res, nil
}

// FetchIdle is FetchOne under the batch guard: it returns ErrBatchInFlight
// instead of calling upstream while a batch is running, and holds off new
// batches until it returns.
func (c *Coordinator) FetchIdle(ctx context.Context, symbol string) (model.FetchResult, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return model.FetchResult{}, ErrBatchInFlight
	}
	defer c.busy.Store(false)
	return c.FetchOne(ctx, symbol)
}

// fetchOne also reports the upstream failure, if the upstream was tried and failed.
func (c *Coordinator) fetchOne(ctx context.Context, sym string) (res model.FetchResult, upErr error, err error) {
	if err := ctx.Err(); err != nil {
		return model.FetchResult{}, nil, err
	}
	now := c.opts.Now()

	rows, err := c.store.Read(ctx, sym, store.ReadQuery{Limit: c.opts.History})
	if err != nil {
		if ctx.Err() != nil {
			return model.FetchResult{}, nil, ctx.Err()
		}
		log.Printf("[WARN] read stored quotes for %s: %v", sym, err)
		rows = nil
	}
	lastTs, hasTs, err := c.store.GetRefreshed(ctx, sym)
	if err != nil {
		log.Printf("[WARN] read refresh time for %s: %v", sym, err)
		hasTs = false
	}

	fresh := hasTs && now.Sub(lastTs) < c.opts.FreshTTL
	if len(rows) >= c.minRows() && (fresh || !hasTs) {
		return c.result(sym, rows, derivedUpdated(lastTs, hasTs, rows, now), model.SourceStore), nil, nil
	}

	var upstream []model.Bar
	upstream, upErr = c.fetcher.FetchDaily(ctx, sym)
	if upErr == nil {
		if err := c.store.Upsert(ctx, sym, upstream); err != nil {
			log.Printf("[WARN] persist quotes for %s: %v", sym, err)
		}
		if err := c.store.SetRefreshed(ctx, sym, now); err != nil {
			log.Printf("[WARN] persist refresh time for %s: %v", sym, err)
		}
		bars := upstream
		if len(bars) == 0 {
			bars = rows
		}
		return c.result(sym, lastN(bars, c.opts.History), now, model.SourceUpstream), nil, nil
	}
	if ctx.Err() != nil {
		return model.FetchResult{}, upErr, ctx.Err()
	}

	if IsRateLimited(upErr) {
		log.Printf("[WARN] %s rate limited for %s, falling back", c.fetcher.Name(), sym)
	} else {
		log.Printf("[WARN] upstream fetch failed: %v", upErr)
	}

	if len(rows) > 0 {
		return c.result(sym, rows, derivedUpdated(lastTs, hasTs, rows, now), model.SourceStore), upErr, nil
	}

	log.Printf("[WARN] no stored data for %s, serving synthetic bars", sym)
	synthetic := c.synth.Generate(c.opts.History, now)
	return c.result(sym, synthetic, now, model.SourceSynthetic), upErr, nil
}

func (c *Coordinator) result(sym string, bars []model.Bar, updated time.Time, src model.DataSource) model.FetchResult {
	return model.FetchResult{
		Symbol:  sym,
		Bars:    calculator.Enrich(bars),
		Updated: updated,
		Source:  src,
	}
}

// derivedUpdated is the recorded refresh time if any, else the last bar's
// date at market close, else now.
func derivedUpdated(ts time.Time, ok bool, rows []model.Bar, now time.Time) time.Time {
	if ok {
		return ts
	}
	if len(rows) > 0 {
		if d, ok := rows[len(rows)-1].Time(); ok {
			return d.Add(closeHour * time.Hour)
		}
	}
	return now
}

// Prefetch resolves symbols one at a time, pausing between them. A call made
// while another batch runs returns ErrBatchInFlight without doing anything.
// Cancelling ctx abandons the rest of the batch; the symbols not yet resolved
// are reported as failed and ctx.Err() is returned with the summary.
func (c *Coordinator) Prefetch(ctx context.Context, symbols []string) (*model.BatchSummary, error) {
	list := store.NormalizeSymbols(symbols)
	if len(list) == 0 {
		return nil, nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBatchInFlight
	}
	defer c.busy.Store(false)
	return c.runBatch(ctx, list)
}

// StartPrefetch claims the batch guard before returning and runs the batch
// in the background. done, if set, receives the batch result. The error is
// ErrBatchInFlight or ErrNoSymbols when nothing was started.
func (c *Coordinator) StartPrefetch(ctx context.Context, symbols []string, done func(*model.BatchSummary, error)) error {
	list := store.NormalizeSymbols(symbols)
	if len(list) == 0 {
		return ErrNoSymbols
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBatchInFlight
	}
	go func() {
		summary, err := c.runBatch(ctx, list)
		c.busy.Store(false)
		if done != nil {
			done(summary, err)
		}
	}()
	return nil
}

// runBatch expects the caller to hold the batch guard.
func (c *Coordinator) runBatch(ctx context.Context, list []string) (*model.BatchSummary, error) {
	n := len(list)
	summary := &model.BatchSummary{
		ID:        uuid.NewString(),
		Requested: list,
		StartedAt: c.opts.Now(),
	}
	c.mu.Lock()
	c.status.Loading = true
	c.status.Error = ""
	c.mu.Unlock()

	for i, sym := range list {
		c.setMessage(fmt.Sprintf("Fetching %s... (%d/%d)", sym, i+1, n))

		res, upErr, err := c.fetchOne(ctx, sym)
		if err != nil {
			summary.Failed = append(summary.Failed, list[i:]...)
			break
		}
		c.merge(res)
		summary.Succeeded = append(summary.Succeeded, sym)
		if upErr != nil {
			summary.UpstreamFailed = append(summary.UpstreamFailed, sym)
		}
		if res.Source == model.SourceSynthetic {
			summary.Synthetic = append(summary.Synthetic, sym)
		}

		if i < n-1 {
			c.setMessage(fmt.Sprintf("Rate limit pause... Next: %s", list[i+1]))
			if err := c.pause(ctx); err != nil {
				summary.Failed = append(summary.Failed, list[i+1:]...)
				break
			}
		}
	}

	summary.FinishedAt = c.opts.Now()
	summary.Error = summaryError(summary)

	c.mu.Lock()
	c.status = Status{Error: summary.Error, LastBatch: summary}
	c.mu.Unlock()

	log.Printf("[INFO] batch %s: %d/%d loaded, %d upstream failures, %d synthetic",
		summary.ID, len(summary.Succeeded), n, len(summary.UpstreamFailed), len(summary.Synthetic))
	if summary.Error != "" {
		log.Printf("[WARN] batch %s: %s", summary.ID, summary.Error)
	}

	return summary, ctx.Err()
}

func (c *Coordinator) pause(ctx context.Context) error {
	if c.opts.PaceDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.opts.PaceDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func summaryError(s *model.BatchSummary) string {
	switch {
	case len(s.Failed) > 0:
		return fmt.Sprintf("Loaded %d/%d. Failed: %s",
			len(s.Succeeded), len(s.Requested), strings.Join(s.Failed, ", "))
	case len(s.UpstreamFailed) == len(s.Requested):
		return "All upstream calls failed. Serving cached or synthetic data."
	}
	return ""
}

// merge replaces held data unless it is newer than res.
func (c *Coordinator) merge(res model.FetchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.held[res.Symbol]; ok && res.Updated.Before(cur.updated) {
		return
	}
	c.held[res.Symbol] = heldData{bars: res.Bars, updated: res.Updated, source: res.Source}
}

// Hydrate loads stored bars for symbols into memory without touching the
// upstream. It returns the number of symbols hydrated.
func (c *Coordinator) Hydrate(ctx context.Context, symbols []string) int {
	now := c.opts.Now()
	n := 0
	for _, sym := range store.NormalizeSymbols(symbols) {
		if ctx.Err() != nil {
			break
		}
		rows, err := c.store.Read(ctx, sym, store.ReadQuery{Limit: c.opts.History})
		if err != nil {
			log.Printf("[WARN] hydrate %s: %v", sym, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		ts, ok, err := c.store.GetRefreshed(ctx, sym)
		if err != nil {
			ok = false
		}
		c.merge(c.result(sym, rows, derivedUpdated(ts, ok, rows, now), model.SourceStore))
		n++
	}
	log.Printf("[INFO] hydrated %d/%d symbols from store", n, len(symbols))
	return n
}

// EnrichedBars returns the held bars for symbol, or nil if none are held.
func (c *Coordinator) EnrichedBars(symbol string) []model.EnrichedBar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.held[store.NormalizeSymbol(symbol)].bars
}

// LastRefreshed returns the effective timestamp of the held data for symbol.
func (c *Coordinator) LastRefreshed(symbol string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.held[store.NormalizeSymbol(symbol)]
	return h.updated, ok
}

// Source reports where the held data for symbol came from.
func (c *Coordinator) Source(symbol string) (model.DataSource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.held[store.NormalizeSymbol(symbol)]
	return h.source, ok
}

// Entries lists the watchlist with the timestamp of the held data.
func (c *Coordinator) Entries() []model.SymbolCacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.SymbolCacheEntry, 0, len(c.symbols))
	for _, sym := range c.symbols {
		out = append(out, model.SymbolCacheEntry{Symbol: sym, LastRefreshed: c.held[sym].updated})
	}
	return out
}

func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Coordinator) Busy() bool { return c.busy.Load() }

func (c *Coordinator) setMessage(msg string) {
	c.mu.Lock()
	c.status.Message = msg
	c.mu.Unlock()
}

// LoadSymbols restores the persisted watchlist. When none is stored the
// initial list is adopted and persisted.
func (c *Coordinator) LoadSymbols(ctx context.Context, initial []string) []string {
	stored, err := c.store.Symbols(ctx)
	if err != nil {
		log.Printf("[WARN] load watchlist: %v", err)
	}
	list := store.NormalizeSymbols(stored)
	if len(list) == 0 {
		list = store.NormalizeSymbols(initial)
		if err := c.store.SaveSymbols(ctx, list); err != nil {
			log.Printf("[WARN] persist watchlist: %v", err)
		}
	}

	c.mu.Lock()
	c.symbols = list
	c.mu.Unlock()
	return append([]string(nil), list...)
}

// Symbols returns a copy of the watchlist.
func (c *Coordinator) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.symbols...)
}

// AddSymbol appends symbol to the watchlist. It reports false for blank or
// already listed symbols.
func (c *Coordinator) AddSymbol(ctx context.Context, symbol string) bool {
	sym := store.NormalizeSymbol(symbol)
	if sym == "" {
		return false
	}
	c.mu.Lock()
	for _, s := range c.symbols {
		if s == sym {
			c.mu.Unlock()
			return false
		}
	}
	c.symbols = append(c.symbols, sym)
	list := append([]string(nil), c.symbols...)
	c.mu.Unlock()

	c.saveSymbols(ctx, list)
	return true
}

// RemoveSymbol drops symbol from the watchlist. Held bars are kept.
func (c *Coordinator) RemoveSymbol(ctx context.Context, symbol string) bool {
	sym := store.NormalizeSymbol(symbol)
	c.mu.Lock()
	list := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		if s != sym {
			list = append(list, s)
		}
	}
	removed := len(list) != len(c.symbols)
	c.symbols = list
	c.mu.Unlock()

	if removed {
		c.saveSymbols(ctx, list)
	}
	return removed
}

func (c *Coordinator) saveSymbols(ctx context.Context, list []string) {
	if err := c.store.SaveSymbols(ctx, list); err != nil {
		log.Printf("[WARN] persist watchlist: %v", err)
	}
}
