package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/cs2_market_watch/internal/config"
	"github.com/vitos/cs2_market_watch/internal/infrastructure/market"
	"github.com/vitos/cs2_market_watch/internal/usecase"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	itemID := flag.String("item", "553370", "item id to fetch")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing steamdt interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Market.BaseURL)
	if len(cfg.Market.AccessToken) >= 4 {
		fmt.Printf("Access token: %s...\n", cfg.Market.AccessToken[:4])
	} else {
		fmt.Printf("⚠️ No access token configured, favourites will fail\n")
	}

	client := market.NewSteamDtClient(cfg.Market, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 2. Check public endpoint (one k-line page)
	rows, err := client.GetKLines(ctx, *itemID, time.Now().Unix())
	if err != nil {
		fmt.Printf("❌ Failed to get k-lines: %v\n", err)
	} else {
		cleaned := usecase.NewDataCleaner(nil).CleanKLineData(rows, true)
		klines, err := usecase.NewIndicatorCalculator(cfg.Indicators).PrepareKLines(cleaned)
		switch {
		case err != nil:
			fmt.Printf("❌ K-lines malformed: %v\n", err)
		case len(klines) == 0:
			fmt.Printf("⚠️ No k-lines for %s\n", *itemID)
		default:
			last := klines[len(klines)-1]
			fmt.Printf("✅ %d k-lines for %s, last %s close=%.2f\n",
				len(klines), *itemID, last.Time.Format("2006-01-02"), last.Close)
		}
	}

	// 3. Check private endpoint (favourites)
	folders, err := client.GetFavoriteItems(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get favourites: %v\n", err)
		return
	}
	for _, f := range folders {
		fmt.Printf("✅ Folder %s (%s): %d items\n", f.Name, f.ID, len(f.Items))
	}
}
