package model

import "time"

// SymbolCacheEntry tracks when a symbol was last refreshed from upstream.
// A zero LastRefreshed means no refresh was ever recorded.
type SymbolCacheEntry struct {
	Symbol        string    `json:"symbol"`
	LastRefreshed time.Time `json:"lastRefreshed"`
}

// DataSource tells where the bars of a FetchResult came from.
type DataSource string

const (
	SourceStore     DataSource = "store"
	SourceUpstream  DataSource = "upstream"
	SourceSynthetic DataSource = "synthetic"
)

// FetchResult is the outcome of resolving a single symbol.
type FetchResult struct {
	Symbol  string
	Bars    []EnrichedBar
	Updated time.Time
	Source  DataSource
}

// BatchSummary reports the outcome of one prefetch batch.
// Partial failure is reported here rather than as an error.
type BatchSummary struct {
	ID             string    `json:"id"`
	Requested      []string  `json:"requested"`
	Succeeded      []string  `json:"succeeded"`
	Failed         []string  `json:"failed"`
	UpstreamFailed []string  `json:"upstreamFailed"`
	Synthetic      []string  `json:"synthetic"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Error          string    `json:"error,omitempty"`
}
