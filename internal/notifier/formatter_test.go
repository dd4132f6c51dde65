package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v5"

	"QuoteSentinel/internal/model"
)

func TestFormatRecommendation(t *testing.T) {
	last := &model.EnrichedBar{
		Bar: model.Bar{Date: "2024-06-13", Close: 182.5},
		RSI: null.FloatFrom(28.4),
		ADX: null.FloatFrom(31),
	}
	msg := FormatRecommendation(SymbolReport{
		Symbol: "IBM",
		Rec: model.Recommendation{
			Action: model.ActionBuy, Confidence: model.ConfidenceHigh, Score: 5,
			BullishScore: 6, BearishScore: 1,
			Reasons: []string{"RSI oversold (≤30)", "Price < lower band"},
		},
		Last:    last,
		Updated: time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC),
		Source:  model.SourceSynthetic,
	})

	for _, want := range []string{
		"<b>IBM</b>: BUY (HIGH, score +5)",
		"Close: 182.50 on 2024-06-13",
		"RSI: 28.4 | ADX: 31.0",
		"Bull 6 / Bear 1",
		"• RSI oversold (≤30)",
		"Price &lt; lower band",
		"Synthetic data",
		"Updated: 2024-06-14 15:00 UTC",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatDigest_Empty(t *testing.T) {
	msg := FormatDigest(nil, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(msg, "2024-06-14") || !strings.Contains(msg, "Watchlist is empty") {
		t.Errorf("digest = %q", msg)
	}
}

func TestFormatBatchSummary(t *testing.T) {
	start := time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)
	msg := FormatBatchSummary(&model.BatchSummary{
		Requested:      []string{"A", "B", "C"},
		Succeeded:      []string{"A"},
		Failed:         []string{"B", "C"},
		UpstreamFailed: []string{"A"},
		Synthetic:      []string{"A"},
		StartedAt:      start,
		FinishedAt:     start.Add(24 * time.Second),
		Error:          "Loaded 1/3. Failed: B, C",
	})
	for _, want := range []string{"1/3 loaded in 24s", "Upstream failed: A", "Synthetic: A", "Failed: B, C", "Loaded 1/3"} {
		if !strings.Contains(msg, want) {
			t.Errorf("summary missing %q:\n%s", want, msg)
		}
	}
	if FormatBatchSummary(nil) != "Nothing to refresh." {
		t.Error("nil summary")
	}
}

func TestFormatWatchlist(t *testing.T) {
	now := time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)
	msg := FormatWatchlist([]model.SymbolCacheEntry{
		{Symbol: "IBM", LastRefreshed: now.Add(-90 * time.Minute)},
		{Symbol: "NEW"},
	}, now)
	if !strings.Contains(msg, "IBM: 1h30m0s ago") || !strings.Contains(msg, "NEW: no data") {
		t.Errorf("watchlist = %q", msg)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name    string
		loading bool
		message string
		errText string
		want    string
	}{
		{"idle", false, "", "", "Idle"},
		{"fetching", true, "Fetching IBM... (1/3)", "", "Fetching IBM... (1/3)"},
		{"error", false, "", "All upstream calls failed. Serving cached or synthetic data.", "All upstream calls failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatStatus(tt.loading, tt.message, tt.errText, nil); !strings.Contains(got, tt.want) {
				t.Errorf("FormatStatus = %q, want %q", got, tt.want)
			}
		})
	}
}
