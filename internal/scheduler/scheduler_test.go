package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"QuoteSentinel/internal/collector"
	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/store"
)

var now0 = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

// stubFetcher serves 40 rising bars. When gate is set each fetch signals
// started and blocks until gate is closed.
type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) FetchDaily(_ context.Context, _ string) ([]model.Bar, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		f.started <- struct{}{}
		<-f.gate
	}
	bars := make([]model.Bar, 40)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.Bar{
			Date:   now0.AddDate(0, 0, i-40).Format(model.DateLayout),
			Open:   c - 0.2,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
			Price:  c,
		}
	}
	return bars, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	r.sent = append(r.sent, text)
	r.mu.Unlock()
	if r.ch != nil {
		r.ch <- text
	}
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *stubFetcher, *recordingSender) {
	t.Helper()
	f := &stubFetcher{}
	coord := collector.NewCoordinator(f, store.NewMemoryStore(), collector.Options{
		Seed: 1,
		Now:  func() time.Time { return now0 },
	})
	coord.LoadSymbols(context.Background(), []string{"IBM", "MSFT"})
	sender := &recordingSender{ch: make(chan string, 4)}
	s := NewScheduler(context.Background(), coord, sender)
	s.Now = func() time.Time { return now0 }
	return s, f, sender
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	if err := s.RegisterAll("0 */15 * * * 1-5", "0 0 22 * * 1-5"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("registered %d jobs, want 2", n)
	}
	if err := s.RegisterAll("bogus", "0 0 22 * * 1-5"); err == nil {
		t.Error("expected error for bad cron spec")
	}
}

func TestHandleCommand_Watchlist(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	ctx := context.Background()

	tests := []struct {
		cmd  string
		want string
	}{
		{"/add tsla", "Added TSLA"},
		{"/add TSLA", "already on the watchlist"},
		{"/remove msft", "Removed MSFT"},
		{"/remove MSFT", "not on the watchlist"},
		{"/add", "Usage: /add SYMBOL"},
		{"/symbols", "IBM: no data"},
		{"/status", "Idle"},
		{"/unknown", "Commands:"},
		{"", "Commands:"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			if got := s.HandleCommand(ctx, tt.cmd); !strings.Contains(got, tt.want) {
				t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.cmd, got, tt.want)
			}
		})
	}
	if got := strings.Join(s.Coordinator.Symbols(), ","); got != "IBM,TSLA" {
		t.Errorf("watchlist = %s", got)
	}
}

func TestHandleCommand_Signal(t *testing.T) {
	s, f, _ := newTestScheduler(t)
	ctx := context.Background()

	got := s.HandleCommand(ctx, "/signal@quote_bot ibm")
	if !strings.Contains(got, "<b>IBM</b>") || !strings.Contains(got, "Close: 139.00") {
		t.Errorf("signal reply = %q", got)
	}
	// Held data is reused on the second request.
	s.HandleCommand(ctx, "/signal IBM")
	if f.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", f.calls)
	}
}

func TestPrefetchTask_QuietOnSuccess(t *testing.T) {
	s, f, sender := newTestScheduler(t)
	s.prefetchTask()

	if f.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", f.calls)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages for a clean batch", len(sender.sent))
	}
	if bars := s.Coordinator.EnrichedBars("MSFT"); len(bars) != 40 {
		t.Errorf("MSFT bars = %d", len(bars))
	}
}

func TestRefreshCommand_SendsSummary(t *testing.T) {
	s, _, sender := newTestScheduler(t)
	if got := s.HandleCommand(context.Background(), "/refresh"); got != "Refresh started." {
		t.Fatalf("reply = %q", got)
	}
	select {
	case msg := <-sender.ch:
		if !strings.Contains(msg, "2/2 loaded") {
			t.Errorf("summary = %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no summary sent")
	}
}

func TestCommands_RespectRunningBatch(t *testing.T) {
	s, f, sender := newTestScheduler(t)
	f.gate = make(chan struct{})
	f.started = make(chan struct{}, 2)
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/refresh"); got != "Refresh started." {
		t.Fatalf("reply = %q", got)
	}
	<-f.started
	if got := s.HandleCommand(ctx, "/refresh"); got != "A refresh is already running." {
		t.Errorf("second /refresh = %q", got)
	}
	if got := s.HandleCommand(ctx, "/signal AAPL"); !strings.Contains(got, "Try again") {
		t.Errorf("/signal during batch = %q", got)
	}
	if n := f.callCount(); n != 1 {
		t.Errorf("upstream calls during batch = %d, want 1", n)
	}

	close(f.gate)
	select {
	case msg := <-sender.ch:
		if !strings.Contains(msg, "2/2 loaded") {
			t.Errorf("summary = %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no summary sent")
	}
	if s.Coordinator.Busy() {
		t.Error("Busy() = true after the summary was sent")
	}
}

func TestRefreshCommand_EmptyWatchlist(t *testing.T) {
	s, f, _ := newTestScheduler(t)
	ctx := context.Background()
	s.HandleCommand(ctx, "/remove IBM")
	s.HandleCommand(ctx, "/remove MSFT")

	if got := s.HandleCommand(ctx, "/refresh"); got != "The watchlist is empty." {
		t.Errorf("reply = %q", got)
	}
	if f.callCount() != 0 {
		t.Errorf("upstream calls = %d, want 0", f.callCount())
	}
}

func TestReportTask(t *testing.T) {
	s, _, sender := newTestScheduler(t)
	s.prefetchTask()
	s.reportTask()

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	for _, want := range []string{"daily digest", "2024-06-14", "<b>IBM</b>", "<b>MSFT</b>"} {
		if !strings.Contains(msg, want) {
			t.Errorf("digest missing %q:\n%s", want, msg)
		}
	}
}
