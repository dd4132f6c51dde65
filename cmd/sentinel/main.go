package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"QuoteSentinel/internal/api"
	"QuoteSentinel/internal/collector"
	"QuoteSentinel/internal/config"
	"QuoteSentinel/internal/notifier"
	"QuoteSentinel/internal/scheduler"
	"QuoteSentinel/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] QuoteSentinel starting...")

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())

	var qs store.QuoteStore
	if cfg.Database.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite store failed, using memory: %v", err)
			qs = store.NewMemoryStore()
		} else {
			qs = sq
		}
	} else {
		qs = store.NewMemoryStore()
	}
	defer qs.Close()

	opts := collector.DefaultOptions()
	opts.History = cfg.Cache.HistoryDays
	opts.FreshTTL = cfg.Cache.FreshTTL
	opts.PaceDelay = cfg.Cache.PaceDelay
	opts.MinRows = cfg.Cache.MinRows
	coord := collector.NewCoordinator(fetcher, qs, opts)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	symbols := coord.LoadSymbols(ctx, cfg.Symbols)
	log.Printf("[INFO] watchlist: %v", symbols)

	// Show last known data before any network call, then refresh.
	coord.Hydrate(ctx, symbols)
	go func() {
		if _, err := coord.Prefetch(ctx, symbols); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[WARN] startup prefetch: %v", err)
		}
	}()

	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[INFO] telegram not configured, notifications are logged only")
	}

	sched := scheduler.NewScheduler(ctx, coord, sender)
	if err := sched.RegisterAll(cfg.Schedule.PrefetchCron, cfg.Schedule.ReportCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(ctx, coord),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] HTTP API listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	log.Println("[INFO] QuoteSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] QuoteSentinel stopped")
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.Upstream.Provider {
	case config.ProviderYahoo:
		f := collector.NewYahooFetcher(cfg.Proxy, cfg.Cache.HistoryDays)
		if cfg.Upstream.BaseURL != "" {
			f.BaseURL = cfg.Upstream.BaseURL
		}
		return f
	default:
		f := collector.NewAlphaVantageFetcher(cfg.Upstream.APIKey, cfg.Proxy, cfg.Cache.HistoryDays)
		if cfg.Upstream.BaseURL != "" {
			f.BaseURL = cfg.Upstream.BaseURL
		}
		return f
	}
}
