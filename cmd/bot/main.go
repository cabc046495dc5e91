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

	"github.com/joho/godotenv"

	"cryptopulse/internal/collector"
	"cryptopulse/internal/config"
	"cryptopulse/internal/news"
	"cryptopulse/internal/notifier"
	"cryptopulse/internal/scheduler"
	"cryptopulse/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] CryptoPulse starting...")

	// Local development convenience, a missing .env is fine.
	_ = godotenv.Load()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init market data sources
	coinbase := collector.NewCoinbaseSource(cfg.Market.CoinbaseURL, cfg.Proxy)
	gecko := collector.NewCoinGeckoSource(cfg.Market.CoinGeckoURL, cfg.Proxy)
	market := collector.NewClient(coinbase, gecko)

	// Init news client
	feed := news.NewClient(cfg.News.NewsAPIKey, cfg.News.GNewsKey, cfg.Proxy)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := scheduler.New(cfg, market, feed, tn)
	if err != nil {
		log.Fatalf("[FATAL] init scheduler: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("[INFO] liveness endpoint listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// The analysis loop is spawned exactly once for the process lifetime.
	go sched.Run(ctx)

	log.Println("[INFO] CryptoPulse is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http server shutdown: %v", err)
	}
	log.Println("[INFO] CryptoPulse stopped")
}
