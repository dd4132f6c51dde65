package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"QuoteSentinel/internal/model"
)

var actionIcon = map[model.Action]string{
	model.ActionBuy:  "🟢",
	model.ActionSell: "🔴",
	model.ActionHold: "⚪",
}

// SymbolReport is one symbol's line in a digest.
type SymbolReport struct {
	Symbol  string
	Rec     model.Recommendation
	Last    *model.EnrichedBar // nil when nothing is held
	Updated time.Time
	Source  model.DataSource
}

// FormatRecommendation formats a single symbol's verdict with its reasons.
func FormatRecommendation(r SymbolReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s</b>: %s (%s, score %+d)\n",
		actionIcon[r.Rec.Action], html.EscapeString(r.Symbol), r.Rec.Action, r.Rec.Confidence, r.Rec.Score))
	if r.Last != nil {
		b.WriteString(fmt.Sprintf("Close: %.2f on %s\n", r.Last.Close, r.Last.Date))
		if r.Last.RSI.Valid {
			b.WriteString(fmt.Sprintf("RSI: %.1f", r.Last.RSI.ValueOrZero()))
			if r.Last.ADX.Valid {
				b.WriteString(fmt.Sprintf(" | ADX: %.1f", r.Last.ADX.ValueOrZero()))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(fmt.Sprintf("Bull %d / Bear %d\n", r.Rec.BullishScore, r.Rec.BearishScore))
	for _, reason := range r.Rec.Reasons {
		b.WriteString("  • " + html.EscapeString(reason) + "\n")
	}
	if r.Source == model.SourceSynthetic {
		b.WriteString("⚠️ Synthetic data, upstream unavailable\n")
	}
	if !r.Updated.IsZero() {
		b.WriteString(fmt.Sprintf("Updated: %s\n", r.Updated.UTC().Format("2006-01-02 15:04 MST")))
	}
	return b.String()
}

// FormatDigest formats the scheduled report over the whole watchlist.
func FormatDigest(reports []SymbolReport, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>QuoteSentinel daily digest</b> | %s\n\n", now.Format("2006-01-02")))
	if len(reports) == 0 {
		b.WriteString("Watchlist is empty.\n")
		return b.String()
	}
	for _, r := range reports {
		b.WriteString(FormatRecommendation(r))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FormatBatchSummary formats the outcome of a prefetch batch.
func FormatBatchSummary(s *model.BatchSummary) string {
	if s == nil {
		return "Nothing to refresh."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>Refresh</b> %d/%d loaded in %s\n",
		len(s.Succeeded), len(s.Requested), s.FinishedAt.Sub(s.StartedAt).Round(time.Second)))
	if len(s.UpstreamFailed) > 0 {
		b.WriteString("Upstream failed: " + strings.Join(s.UpstreamFailed, ", ") + "\n")
	}
	if len(s.Synthetic) > 0 {
		b.WriteString("Synthetic: " + strings.Join(s.Synthetic, ", ") + "\n")
	}
	if len(s.Failed) > 0 {
		b.WriteString("Failed: " + strings.Join(s.Failed, ", ") + "\n")
	}
	if s.Error != "" {
		b.WriteString("⚠️ " + html.EscapeString(s.Error) + "\n")
	}
	return b.String()
}

// FormatWatchlist formats the watchlist with the age of each symbol's data.
func FormatWatchlist(entries []model.SymbolCacheEntry, now time.Time) string {
	var b strings.Builder
	b.WriteString("📋 <b>Watchlist</b>\n\n")
	if len(entries) == 0 {
		b.WriteString("(empty)\n")
		return b.String()
	}
	for _, e := range entries {
		if e.LastRefreshed.IsZero() {
			b.WriteString(fmt.Sprintf("%s: no data\n", e.Symbol))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s ago\n", e.Symbol, now.Sub(e.LastRefreshed).Round(time.Minute)))
	}
	return b.String()
}

// FormatStatus formats the coordinator progress for /status.
func FormatStatus(loading bool, message, errText string, last *model.BatchSummary) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Status</b>\n")
	switch {
	case loading && message != "":
		b.WriteString(html.EscapeString(message) + "\n")
	case loading:
		b.WriteString("Refreshing...\n")
	default:
		b.WriteString("Idle\n")
	}
	if errText != "" {
		b.WriteString("⚠️ " + html.EscapeString(errText) + "\n")
	}
	if last != nil {
		b.WriteString(fmt.Sprintf("Last refresh: %s (%d/%d)\n",
			last.FinishedAt.UTC().Format("2006-01-02 15:04 MST"), len(last.Succeeded), len(last.Requested)))
	}
	return b.String()
}
