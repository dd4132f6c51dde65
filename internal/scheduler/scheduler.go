package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"QuoteSentinel/internal/collector"
	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/notifier"
	"QuoteSentinel/internal/strategy"
)

// Sender delivers chat messages. A nil Sender only logs.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks and chat commands.
type Scheduler struct {
	Cron        *cron.Cron
	Coordinator *collector.Coordinator
	Notifier    Sender
	Ctx         context.Context
	Now         func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, coord *collector.Coordinator, n Sender) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Coordinator: coord,
		Notifier:    n,
		Ctx:         ctx,
		Now:         time.Now,
	}
}

// RegisterAll registers the prefetch and report tasks.
func (s *Scheduler) RegisterAll(prefetchCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(prefetchCron, s.prefetchTask); err != nil {
		return fmt.Errorf("register prefetch task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) prefetchTask() {
	log.Println("[INFO] running scheduled prefetch")
	summary, err := s.Coordinator.Prefetch(s.Ctx, s.Coordinator.Symbols())
	if errors.Is(err, collector.ErrBatchInFlight) {
		log.Println("[INFO] prefetch skipped, batch already in flight")
		return
	}
	if err != nil {
		log.Printf("[WARN] scheduled prefetch: %v", err)
	}
	// Only degraded batches are worth a message.
	if summary != nil && summary.Error != "" {
		s.trySend(notifier.FormatBatchSummary(summary))
	}
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running report task")
	s.trySend(s.digest())
}

func (s *Scheduler) digest() string {
	symbols := s.Coordinator.Symbols()
	reports := make([]notifier.SymbolReport, 0, len(symbols))
	for _, sym := range symbols {
		reports = append(reports, s.report(sym))
	}
	return notifier.FormatDigest(reports, s.Now())
}

// report builds the recommendation for a held symbol.
func (s *Scheduler) report(sym string) notifier.SymbolReport {
	bars := s.Coordinator.EnrichedBars(sym)
	r := notifier.SymbolReport{
		Symbol: sym,
		Rec:    strategy.Recommend(bars),
	}
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		r.Last = &last
	}
	r.Updated, _ = s.Coordinator.LastRefreshed(sym)
	r.Source, _ = s.Coordinator.Source(sym)
	return r
}

// RunPrefetchNow starts a batch over the watchlist in the background and
// reports the summary when it finishes. It returns collector.ErrBatchInFlight
// when a batch is already running.
func (s *Scheduler) RunPrefetchNow() error {
	return s.Coordinator.StartPrefetch(s.Ctx, s.Coordinator.Symbols(), func(summary *model.BatchSummary, err error) {
		if err != nil {
			log.Printf("[WARN] manual prefetch: %v", err)
		}
		s.trySend(notifier.FormatBatchSummary(summary))
	})
}

const helpText = `Commands:
/signal SYMBOL - recommendation for a symbol
/add SYMBOL - add to the watchlist
/remove SYMBOL - remove from the watchlist
/refresh - refresh the watchlist now
/report - digest of the watchlist
/status - refresh progress
/symbols - watchlist and data age`

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends the bot name in groups: /signal@bot
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	arg := ""
	if len(fields) > 1 {
		arg = strings.ToUpper(fields[1])
	}

	switch cmd {
	case "/signal":
		if arg == "" {
			return "Usage: /signal SYMBOL"
		}
		return s.signal(ctx, arg)
	case "/add":
		if arg == "" {
			return "Usage: /add SYMBOL"
		}
		if !s.Coordinator.AddSymbol(ctx, arg) {
			return fmt.Sprintf("%s is already on the watchlist.", arg)
		}
		return fmt.Sprintf("Added %s. It will load on the next refresh.", arg)
	case "/remove":
		if arg == "" {
			return "Usage: /remove SYMBOL"
		}
		if !s.Coordinator.RemoveSymbol(ctx, arg) {
			return fmt.Sprintf("%s is not on the watchlist.", arg)
		}
		return fmt.Sprintf("Removed %s.", arg)
	case "/refresh":
		switch err := s.RunPrefetchNow(); {
		case errors.Is(err, collector.ErrBatchInFlight):
			return "A refresh is already running."
		case errors.Is(err, collector.ErrNoSymbols):
			return "The watchlist is empty."
		}
		return "Refresh started."
	case "/report":
		return s.digest()
	case "/status":
		st := s.Coordinator.Status()
		return notifier.FormatStatus(st.Loading, st.Message, st.Error, st.LastBatch)
	case "/symbols":
		return notifier.FormatWatchlist(s.Coordinator.Entries(), s.Now())
	default:
		return helpText
	}
}

func (s *Scheduler) signal(ctx context.Context, sym string) string {
	if len(s.Coordinator.EnrichedBars(sym)) == 0 {
		_, err := s.Coordinator.FetchIdle(ctx, sym)
		if errors.Is(err, collector.ErrBatchInFlight) {
			return fmt.Sprintf("No data for %s yet and a refresh is running. Try again shortly.", sym)
		}
		if err != nil {
			return fmt.Sprintf("Could not load %s: %v", sym, err)
		}
	}
	return notifier.FormatRecommendation(s.report(sym))
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] notification (telegram disabled):\n%s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
