package domain

import (
	"context"
	"time"
)

// MarketSource defines the interface for fetching data from the skin market.
type MarketSource interface {
	GetFavoriteItems(ctx context.Context) ([]FavoriteFolder, error)
	// GetKLineHistory returns raw K-line rows as decoded from the API,
	// newest page first. Rows are cleaned by the caller.
	GetKLineHistory(ctx context.Context, itemID string) ([]any, error)
}

// ItemRepository defines storage operations for tracked items.
type ItemRepository interface {
	SaveItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context) ([]*Item, error)
}

// PriceRepository defines storage operations for K-line history.
type PriceRepository interface {
	SaveKLines(ctx context.Context, itemID string, klines []KLine) (int, error)
	ListKLines(ctx context.Context, itemID string, from, to time.Time) ([]KLine, error)
}

// SignalRepository defines storage operations for live signals.
type SignalRepository interface {
	SaveSignal(ctx context.Context, signal *Signal) error
	ListLatestSignals(ctx context.Context, limit int) ([]*Signal, error)
}

// BacktestRepository stores backtest summaries.
type BacktestRepository interface {
	SaveBacktestRun(ctx context.Context, run *BacktestRun) error
	ListBacktestRuns(ctx context.Context, itemID string, limit int) ([]*BacktestRun, error)
}

// Notifier pushes a message to the chat channel.
type Notifier interface {
	Notify(ctx context.Context, title, message string, tags ...string) error
}

// BacktestRun is a persisted backtest summary.
type BacktestRun struct {
	ID        string     `json:"id"`
	ItemID    string     `json:"item_id"`
	Strategy  string     `json:"strategy"`
	Params    string     `json:"params"`
	Stats     Statistics `json:"stats"`
	Open      bool       `json:"open_position"`
	CreatedAt time.Time  `json:"created_at"`
}
