// Package main runs the smart-wallet buy tracker:
// - Polling (scheduled): per-wallet transaction history from the Helius API
// - Webhook (push): enhanced transaction deliveries over HTTP
// - Stream (optional): transactionSubscribe over WebSocket
// Qualifying buys are deduplicated and alerted to a Telegram chat.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smart-wallet-tracker/internal/alert"
	"smart-wallet-tracker/internal/classify"
	"smart-wallet-tracker/internal/dedup"
	"smart-wallet-tracker/internal/helius"
	"smart-wallet-tracker/internal/observability"
	"smart-wallet-tracker/internal/storage"
	"smart-wallet-tracker/internal/storage/memory"
	"smart-wallet-tracker/internal/storage/migrations"
	pgstore "smart-wallet-tracker/internal/storage/postgres"
	"smart-wallet-tracker/internal/telegram"
	"smart-wallet-tracker/internal/tracker"
	"smart-wallet-tracker/internal/wallets"
	"smart-wallet-tracker/internal/webhook"
)

// Run modes.
const (
	modePoll    = "poll"
	modeWebhook = "webhook"
	modeAll     = "all"
)

func main() {
	// Load .env file if exists; system env vars take precedence.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	heliusAPIKey := flag.String("helius-api-key", os.Getenv("HELIUS_API_KEY"), "Helius API key")
	heliusBaseURL := flag.String("helius-base-url", os.Getenv("HELIUS_BASE_URL"), "Helius API base URL override")
	botToken := flag.String("telegram-bot-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token")
	chatID := flag.String("telegram-chat-id", os.Getenv("TELEGRAM_CHAT_ID"), "Telegram chat ID")
	walletsFile := flag.String("wallets", envOr("WALLETS_FILE", "wallets.json"), "Watched wallets JSON file (address -> label)")
	mode := flag.String("mode", envOr("TRACKER_MODE", modeAll), "Run mode: poll, webhook or all")
	pollInterval := flag.Duration("poll-interval", 60*time.Second, "Delay between poll cycles")
	walletPacing := flag.Duration("wallet-pacing", 1*time.Second, "Delay between wallet fetches within a cycle")
	maxEventAge := flag.Duration("max-event-age", 5*time.Minute, "Drop events older than this (0 disables)")
	dedupPolicy := flag.String("dedup-policy", string(dedup.PerSignature), "Dedup granularity: per-signature or per-mint")
	dedupTTL := flag.Duration("dedup-ttl", 30*time.Minute, "Per-key dedup retention (0 keeps entries forever)")
	alertAll := flag.Bool("alert-all", false, "Alert every buy in a polled batch instead of the first per wallet")
	parseMode := flag.String("parse-mode", os.Getenv("TELEGRAM_PARSE_MODE"), "Telegram parse mode: empty, Markdown or MarkdownV2")
	enrichSymbols := flag.Bool("enrich-symbols", true, "Resolve token symbols for alert messages")
	maxTokenAge := flag.Duration("max-token-age", 0, "Skip buys of tokens created longer ago than this (0 disables)")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":3000"), "Webhook HTTP listen address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN for alert history (empty uses in-memory)")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("HELIUS_WS_ENDPOINT"), "WebSocket endpoint for streaming ingest (optional)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[tracker] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *mode != modePoll && *mode != modeWebhook && *mode != modeAll {
		logger.Fatalf("unknown --mode %q (want poll, webhook or all)", *mode)
	}
	if *botToken == "" || *chatID == "" {
		logger.Fatal("--telegram-bot-token and --telegram-chat-id are required")
	}
	needsAPI := *mode != modeWebhook || *enrichSymbols || *maxTokenAge > 0
	if needsAPI && *heliusAPIKey == "" {
		logger.Fatal("--helius-api-key is required")
	}
	policy := dedup.Policy(*dedupPolicy)
	if !policy.Valid() {
		logger.Fatalf("unknown --dedup-policy %q", *dedupPolicy)
	}

	// Load watched wallets
	registry, err := wallets.Load(*walletsFile)
	if err != nil {
		logger.Fatalf("Failed to load wallets: %v", err)
	}
	logger.Printf("Watching %d wallets from %s", registry.Len(), *walletsFile)
	for _, w := range registry.Wallets() {
		if !wallets.IsOnCurve(w.Address) {
			logger.Printf("warning: %s (%s) is off-curve; PDAs are usually pools, not wallets", w.Label, w.Address)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Alert history store
	alertStore, cleanup, err := createAlertStore(ctx, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to create alert store: %v", err)
	}
	defer cleanup()

	// Telegram notifier
	notifier, err := telegram.NewClient(*botToken, *chatID, telegram.WithParseMode(*parseMode))
	if err != nil {
		logger.Fatalf("Failed to create telegram client: %v", err)
	}

	// Helius API client
	var heliusOpts []helius.ClientOption
	if *heliusBaseURL != "" {
		heliusOpts = append(heliusOpts, helius.WithBaseURL(*heliusBaseURL))
	}
	api := helius.NewClient(*heliusAPIKey, heliusOpts...)

	var metadata tracker.MetadataResolver
	if *enrichSymbols || *maxTokenAge > 0 {
		metadata = api
	}

	// Dispatcher
	dispatcher, err := tracker.New(tracker.Options{
		Registry:     registry,
		Classifier:   classify.New(nil),
		Ledger:       dedup.NewLedger(*dedupTTL),
		Formatter:    alert.NewFormatter(*parseMode),
		Fetcher:      api,
		Notifier:     notifier,
		Alerts:       alertStore,
		Metadata:     metadata,
		Logger:       logger,
		PollInterval: *pollInterval,
		WalletPacing: *walletPacing,
		MaxEventAge:  *maxEventAge,
		MaxTokenAge:  *maxTokenAge,
		Policy:       policy,
		AlertAll:     *alertAll,
	})
	if err != nil {
		logger.Fatalf("Failed to create dispatcher: %v", err)
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Startup notification; delivery failure here usually means bad credentials.
	formatter := alert.NewFormatter(*parseMode)
	if err := notifier.Send(ctx, formatter.FormatStartup(registry.Len())); err != nil {
		logger.Printf("Startup notification failed: %v", err)
	}

	// Metrics server
	go startMetricsServer(*metricsAddr, logger)

	// Webhook server
	if *mode != modePoll {
		go startWebhookServer(ctx, *listenAddr, dispatcher, logger)
	}

	// Streaming ingest
	if *wsEndpoint != "" {
		stream, err := helius.NewStreamSource(ctx, *wsEndpoint, registry.Addresses(), nil, logger)
		if err != nil {
			logger.Fatalf("Failed to open stream: %v", err)
		}
		defer stream.Close()
		go dispatcher.ConsumeStream(ctx, stream.Events())
		logger.Printf("Streaming from %s", *wsEndpoint)
	}

	// Run
	if *mode == modeWebhook {
		logger.Printf("Running in webhook mode on %s", *listenAddr)
		<-ctx.Done()
		done <- nil
	} else {
		logger.Printf("Polling every %v", *pollInterval)
		err = dispatcher.Run(ctx)
		done <- err
		cancel()
		if err != nil && err != context.Canceled {
			logger.Fatalf("Tracker error: %v", err)
		}
	}

	logger.Println("Shutdown complete")
}

// createAlertStore picks the persistent store when a DSN is configured and
// falls back to in-memory otherwise.
func createAlertStore(ctx context.Context, dsn string, logger *log.Logger) (storage.AlertStore, func(), error) {
	if dsn == "" {
		logger.Println("No --postgres-dsn, alert history is in-memory")
		return memory.NewAlertStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	logger.Println("Alert history in PostgreSQL")
	return pgstore.NewAlertStore(pool), pool.Close, nil
}

// startMetricsServer serves health and Prometheus metrics.
func startMetricsServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("Metrics server error: %v", err)
	}
}

// startWebhookServer serves the webhook receiver until ctx is cancelled.
func startWebhookServer(ctx context.Context, addr string, dispatcher *tracker.Dispatcher, logger *log.Logger) {
	server := &http.Server{
		Addr:              addr,
		Handler:           webhook.NewServer(dispatcher, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Printf("Starting webhook server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("Webhook server error: %v", err)
	}
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
