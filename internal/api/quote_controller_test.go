package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"QuoteSentinel/internal/collector"
	"QuoteSentinel/internal/model"
	"QuoteSentinel/internal/store"
)

var now0 = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// gateFetcher serves 30 rising bars; when gate is set it blocks until closed.
type gateFetcher struct {
	gate    chan struct{}
	started chan struct{}
}

func (f *gateFetcher) Name() string { return "gate" }

func (f *gateFetcher) FetchDaily(ctx context.Context, _ string) ([]model.Bar, error) {
	if f.gate != nil {
		f.started <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	bars := make([]model.Bar, 30)
	for i := range bars {
		c := 50 + float64(i)
		bars[i] = model.Bar{Date: now0.AddDate(0, 0, i-30).Format(model.DateLayout), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100, Price: c}
	}
	return bars, nil
}

func newTestRouter(t *testing.T, f collector.Fetcher) (*gin.Engine, *collector.Coordinator) {
	t.Helper()
	coord := collector.NewCoordinator(f, store.NewMemoryStore(), collector.Options{
		Seed: 1,
		Now:  func() time.Time { return now0 },
	})
	coord.LoadSymbols(context.Background(), []string{"IBM"})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRouter(ctx, coord), coord
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &gateFetcher{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("%s = %d", path, w.Code)
		}
	}
}

func TestSymbols(t *testing.T) {
	r, _ := newTestRouter(t, &gateFetcher{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"list", http.MethodGet, "/api/v1/symbols", "", http.StatusOK},
		{"add", http.MethodPost, "/api/v1/symbols", `{"symbol":"msft"}`, http.StatusCreated},
		{"add duplicate", http.MethodPost, "/api/v1/symbols", `{"symbol":"MSFT"}`, http.StatusConflict},
		{"add blank", http.MethodPost, "/api/v1/symbols", `{"symbol":"  "}`, http.StatusBadRequest},
		{"add missing", http.MethodPost, "/api/v1/symbols", `{}`, http.StatusBadRequest},
		{"remove", http.MethodDelete, "/api/v1/symbols/ibm", "", http.StatusOK},
		{"remove unknown", http.MethodDelete, "/api/v1/symbols/ibm", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, tt.method, tt.path, tt.body); w.Code != tt.code {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, w.Code, tt.code, w.Body.String())
			}
		})
	}

	w := do(r, http.MethodGet, "/api/v1/symbols", "")
	data := decode(t, w)["data"].([]any)
	if len(data) != 1 || data[0] != "MSFT" {
		t.Errorf("watchlist = %v", data)
	}
}

func TestQuotesAndRecommendation(t *testing.T) {
	r, coord := newTestRouter(t, &gateFetcher{})

	if w := do(r, http.MethodGet, "/api/v1/quotes/IBM", ""); w.Code != http.StatusNotFound {
		t.Errorf("quotes before fetch = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/v1/recommendation/IBM", "")
	if w.Code != http.StatusOK {
		t.Fatalf("recommendation = %d", w.Code)
	}
	rec := decode(t, w)["data"].(map[string]any)
	if rec["action"] != "HOLD" || rec["reasons"].([]any)[0] != "Insufficient data" {
		t.Errorf("recommendation without data = %v", rec)
	}

	if _, err := coord.FetchOne(context.Background(), "IBM"); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}

	w = do(r, http.MethodGet, "/api/v1/quotes/ibm?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("quotes = %d", w.Code)
	}
	body := decode(t, w)
	bars := body["data"].([]any)
	if len(bars) != 5 {
		t.Fatalf("got %d bars, want 5", len(bars))
	}
	last := bars[4].(map[string]any)
	if last["close"] != 79.0 || last["date"] != "2024-06-13" {
		t.Errorf("last bar = %v", last)
	}
	if _, ok := last["rsi"]; !ok {
		t.Errorf("indicator fields missing: %v", last)
	}
	if body["source"] != "upstream" {
		t.Errorf("source = %v", body["source"])
	}

	w = do(r, http.MethodGet, "/api/v1/recommendation/IBM", "")
	rec = decode(t, w)["data"].(map[string]any)
	if rec["action"] == nil || rec["confidence"] == nil {
		t.Errorf("recommendation = %v", rec)
	}
}

func TestPrefetch(t *testing.T) {
	f := &gateFetcher{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	r, coord := newTestRouter(t, f)

	w := do(r, http.MethodPost, "/api/v1/prefetch", `{"symbols":["aapl"]}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("prefetch = %d: %s", w.Code, w.Body.String())
	}
	// The batch guard is held by the time 202 is written.
	if !coord.Busy() {
		t.Error("Busy() = false right after 202")
	}
	<-f.started

	if w := do(r, http.MethodPost, "/api/v1/prefetch", ""); w.Code != http.StatusConflict {
		t.Errorf("prefetch while busy = %d, want 409", w.Code)
	}
	status := decode(t, do(r, http.MethodGet, "/api/v1/status", ""))
	if status["busy"] != true {
		t.Errorf("status = %v", status)
	}

	close(f.gate)
	deadline := time.Now().Add(5 * time.Second)
	for coord.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(coord.EnrichedBars("AAPL")) != 30 {
		t.Error("AAPL not held after prefetch")
	}
	if w := do(r, http.MethodPost, "/api/v1/prefetch", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", w.Code)
	}
}
