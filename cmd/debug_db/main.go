package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/cs2_market_watch/internal/config"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	items, err := store.ListItems(ctx)
	if err != nil {
		fmt.Printf("Failed to list items: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d items:\n", len(items))
	for _, it := range items {
		fmt.Printf("- Item ID: %s, Name: %s, Folder: %s\n", it.ID, it.Name, it.Folder)

		klines, err := store.ListKLines(ctx, it.ID, time.Time{}, time.Time{})
		if err != nil {
			fmt.Printf("  ❌ Failed to load k-lines: %v\n", err)
		} else if len(klines) == 0 {
			fmt.Printf("  ⚠️ No k-lines stored for %s\n", it.ID)
		} else {
			first, last := klines[0], klines[len(klines)-1]
			fmt.Printf("  ✅ %d k-lines: %s .. %s, last close %.2f\n",
				len(klines), first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), last.Close)
		}
	}

	signals, err := store.ListLatestSignals(ctx, 10)
	if err != nil {
		fmt.Printf("Failed to list signals: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nLatest %d signals:\n", len(signals))
	for _, s := range signals {
		fmt.Printf("- %s %s %s at %.2f (%s)\n", s.Time.Format("2006-01-02"), s.ItemName, s.Type, s.Price, s.Strategy)
	}
}
