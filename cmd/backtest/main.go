package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitos/cs2_market_watch/internal/config"
	"github.com/vitos/cs2_market_watch/internal/domain"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/logger"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/storage"
	"github.com/vitos/cs2_market_watch/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	itemID := flag.String("item", "", "item id to backtest")
	all := flag.Bool("all", false, "backtest every stored item")
	strategy := flag.String("strategy", usecase.StrategyBollinger, "bollinger or vegas")
	lookback := flag.Int("lookback", -1, "override lookback days (0 = whole history)")
	workers := flag.Int("workers", 4, "parallel backtests with -all")
	flag.Parse()

	if *itemID == "" && !*all {
		fmt.Println("Usage: backtest -item <id> | -all [-strategy bollinger|vegas] [-workers n]")
		os.Exit(2)
	}

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

	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	if *lookback >= 0 {
		cfg.Backtest.Bollinger.LookbackDays = *lookback
		cfg.Backtest.Vegas.LookbackDays = *lookback
	}
	calc := usecase.NewIndicatorCalculator(cfg.Indicators)
	svc := usecase.NewBacktestService(store, store, calc,
		usecase.NewBollingerBacktester(cfg.Backtest.Bollinger),
		usecase.NewVegasBacktester(cfg.Backtest.Vegas),
		log,
	)
	reporter := usecase.NewReporter(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var items []*domain.Item
	if *all {
		items, err = store.ListItems(ctx)
		if err != nil {
			log.Fatal("Failed to list items", zap.Error(err))
		}
	} else {
		item, err := store.GetItem(ctx, *itemID)
		if err != nil {
			log.Warn("Item not in store, using id as name", zap.String("item_id", *itemID), zap.Error(err))
			item = &domain.Item{ID: *itemID, Name: *itemID}
		}
		items = []*domain.Item{item}
	}

	// Reports are buffered per item and printed in list order.
	reports := make([]bytes.Buffer, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for i, item := range items {
		g.Go(func() error {
			res, err := svc.RunItem(gctx, item.ID, *strategy)
			if err != nil {
				return fmt.Errorf("%s: %w", item.ID, err)
			}
			title := fmt.Sprintf("%s backtest: %s (%s)", res.Strategy, item.Name, item.ID)
			return reporter.Write(&reports[i], title, res)
		})
	}
	runErr := g.Wait()

	for i := range reports {
		os.Stdout.Write(reports[i].Bytes())
	}
	if runErr != nil {
		log.Fatal("Backtest failed", zap.Error(runErr))
	}
}
