package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/cs2_market_watch/internal/config"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/logger"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/notify"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/storage"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	limit := flag.Int("limit", 20, "number of stored signals to summarise")
	message := flag.String("message", "", "send this text instead of the signal summary")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Notify.Topic == "" {
		log.Fatal("No ntfy topic configured (notify.topic or NATY_TOPIC_BUY_SELL_NOTIFY)")
	}
	notifier := notify.NewNtfyNotifier(cfg.Notify, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, body := "CS2 Market Watch", *message
	if body == "" {
		store, err := storage.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			log.Fatal("Failed to init sqlite", zap.Error(err))
		}
		defer store.Close()

		signals, err := store.ListLatestSignals(ctx, *limit)
		if err != nil {
			log.Fatal("Failed to list signals", zap.Error(err))
		}
		if len(signals) == 0 {
			log.Info("No signals to send")
			return
		}
		summary := usecase.NewSignalSummary()
		// newest first; add oldest first so the newest per item wins
		for i := len(signals) - 1; i >= 0; i-- {
			summary.Add(*signals[i])
		}
		title = fmt.Sprintf("Signal summary (%d items)", summary.Len())
		body = summary.Markdown()
	}

	if err := notifier.Notify(ctx, title, body, "bell"); err != nil {
		log.Fatal("Failed to send notification", zap.Error(err))
	}
	log.Info("Notification sent", zap.String("topic", cfg.Notify.Topic))
}
