package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/cs2_market_watch/internal/config"
	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/logger"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/market"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/notify"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/scheduler"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/storage"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"github.com/vitos/cs2_market_watch/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	once := flag.Bool("once", false, "run a single crawl cycle and exit")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Market Client
	client := market.NewSteamDtClient(cfg.Market, log.Named("steamdt"))

	var notifier domain.Notifier
	if cfg.Notify.Topic != "" {
		notifier = notify.NewNtfyNotifier(cfg.Notify, log.Named("ntfy"))
	} else if cfg.Tracker.Notify {
		log.Warn("Notifications enabled but no ntfy topic configured")
	}

	// 5. Init Services
	calc := usecase.NewIndicatorCalculator(cfg.Indicators)
	center := usecase.NewStrategyCenter(calc, cfg.Strategies, log)
	backtests := usecase.NewBacktestService(store, store, calc,
		usecase.NewBollingerBacktester(cfg.Backtest.Bollinger),
		usecase.NewVegasBacktester(cfg.Backtest.Vegas),
		log,
	)
	tracker := usecase.NewTrackerService(
		client, store, store, store, notifier,
		usecase.NewDataCleaner(log), calc, center, backtests,
		cfg.Tracker, log.Named("tracker"),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *once {
		if _, err := tracker.RunCycle(ctx); err != nil {
			log.Fatal("Crawl cycle failed", zap.Error(err))
		}
		return
	}

	// 6. Schedule Crawls
	hub := web.NewSignalHub(log.Named("ws"))
	tracker.OnSignal(hub.Broadcast)

	runner := scheduler.New(ctx, log.Named("cron"))
	crawl := func(ctx context.Context) {
		if _, err := tracker.RunCycle(ctx); err != nil {
			log.Error("Crawl cycle failed", zap.Error(err))
		}
	}
	if _, err := runner.Add("crawl", cfg.Schedule.Crawl, crawl); err != nil {
		log.Fatal("Invalid crawl schedule", zap.String("spec", cfg.Schedule.Crawl), zap.Error(err))
	}
	runner.Start()
	if cfg.Schedule.RunOnBoot {
		go crawl(ctx)
	}

	// 7. Init Web Server
	server := web.NewServer(ctx, cfg.Server.Port, store, store, store, store, backtests, calc, tracker, hub, log.Named("web"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 8. Wait for Shutdown
	<-ctx.Done()

	log.Info("Shutting down...")
	runner.Stop()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
